package postgres

import "context"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS menu_items (
		id                    BIGSERIAL PRIMARY KEY,
		restaurant_id         TEXT NOT NULL,
		name                  TEXT NOT NULL,
		price                 NUMERIC(12,2) NOT NULL DEFAULT 0,
		inventory_type        TEXT NOT NULL DEFAULT 'UNLIMITED',
		stock_quantity        INT,
		initial_stock         INT,
		low_stock_alert       INT,
		auto_mark_unavailable BOOLEAN NOT NULL DEFAULT false,
		is_available          BOOLEAN NOT NULL DEFAULT true,
		deleted               BOOLEAN NOT NULL DEFAULT false,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT menu_items_stock_non_negative CHECK (stock_quantity IS NULL OR stock_quantity >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_menu_items_restaurant ON menu_items (restaurant_id) WHERE NOT deleted`,

	`CREATE TABLE IF NOT EXISTS stock_adjustments (
		id              BIGSERIAL PRIMARY KEY,
		restaurant_id   TEXT NOT NULL,
		menu_item_id    BIGINT NOT NULL REFERENCES menu_items(id),
		adjustment_type TEXT NOT NULL,
		previous_stock  INT NOT NULL,
		new_stock       INT NOT NULL,
		quantity        INT NOT NULL,
		reason          TEXT,
		user_id         TEXT,
		order_id        TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_adjustments_item ON stock_adjustments (menu_item_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id            TEXT PRIMARY KEY,
		restaurant_id TEXT NOT NULL,
		table_id      TEXT,
		customer_id   TEXT,
		waiter_id     TEXT NOT NULL,
		type          TEXT NOT NULL,
		status        TEXT NOT NULL,
		total_amount  NUMERIC(12,2) NOT NULL DEFAULT 0,
		notes         TEXT,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_restaurant_created ON orders (restaurant_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS order_lines (
		id              BIGSERIAL PRIMARY KEY,
		order_id        TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		menu_item_id    BIGINT NOT NULL,
		item_name       TEXT NOT NULL,
		quantity        INT NOT NULL CHECK (quantity >= 1),
		price_at_order  NUMERIC(12,2) NOT NULL,
		notes           TEXT,
		is_substitution BOOLEAN NOT NULL DEFAULT false,
		is_extra        BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines (order_id)`,

	`CREATE TABLE IF NOT EXISTS outbox (
		id             BIGSERIAL PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id   TEXT NOT NULL,
		type           TEXT NOT NULL,
		payload        JSONB NOT NULL,
		traceparent    TEXT,
		status         TEXT NOT NULL DEFAULT 'pending',
		relay_id       TEXT,
		lease_until    TIMESTAMPTZ,
		retry_count    INT NOT NULL DEFAULT 0,
		last_error     TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox (id) WHERE status = 'pending'`,
}

// EnsureSchema creates the tables the engine owns. Idempotent.
func (d *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
