package source

// Source names. These are the keys of the raw snapshot payload and must stay
// stable: stored snapshots are read back by name.
const (
	SourceWorkInProgress      = "work_in_progress"
	SourceOrderFulfillment    = "order_fulfillment"
	SourceCycleTime           = "cycle_time"
	SourceForecast            = "forecast"
	SourceInventory           = "inventory"
	SourceDailySales          = "daily_sales"
	SourceLostSales           = "lost_sales"
	SourceOrderToAvailability = "order_to_availability"
	SourceMaterialMaster      = "material_master"
	SourceBatchExpiry         = "batch_expiry"
)

const (
	queryWorkInProgress = `
		SELECT batch_no, material_code, process_stage, quantity, started_at
		FROM wip_batches
		WHERE closed_at IS NULL
		ORDER BY started_at`

	queryOrderFulfillment = `
		SELECT order_no, line_no, material_code, ordered_qty, fulfilled_qty, due_date
		FROM order_lines
		WHERE status <> 'CANCELLED'
		ORDER BY order_no, line_no`

	queryCycleTime = `
		SELECT material_code, process_stage, avg_cycle_days, sample_count
		FROM cycle_time_summary
		ORDER BY material_code`

	queryForecast = `
		SELECT material_code, forecast_month, forecast_qty
		FROM demand_forecast
		WHERE forecast_month >= to_char(now(), 'YYYYMM')
		ORDER BY material_code, forecast_month`

	queryInventory = `
		SELECT material_code, plant, storage_location, unrestricted_qty, blocked_qty
		FROM inventory_positions
		ORDER BY material_code, plant`

	queryDailySales = `
		SELECT material_code, sale_date, sold_qty, revenue
		FROM daily_sales
		WHERE sale_date >= current_date - INTERVAL '35 days'
		ORDER BY sale_date`

	queryLostSales = `
		SELECT material_code, request_date, requested_qty, reason_code
		FROM lost_sales
		WHERE request_date >= current_date - INTERVAL '35 days'
		ORDER BY request_date`

	queryOrderToAvailability = `
		SELECT order_no, material_code, ordered_at, available_at, lead_days
		FROM order_availability
		ORDER BY ordered_at`

	queryMaterialMaster = `
		SELECT material_code, description, product_group, base_unit, shelf_life_days
		FROM material_master
		WHERE deleted_at IS NULL
		ORDER BY material_code`

	queryBatchExpiry = `
		SELECT batch_no, material_code, quantity, expiry_date
		FROM batch_stock
		WHERE expiry_date IS NOT NULL
		ORDER BY expiry_date`
)
