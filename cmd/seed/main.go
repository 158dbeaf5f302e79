// seed loads the demo users, catalog, sale types, discount codes and terminal
// registration. It is idempotent: existing rows are updated in place.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"pos-core/internal/config"
	"pos-core/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	log.Println("Restoring users...")
	_, err = tx.Exec(ctx, `
		INSERT INTO users (email, first_name, last_name, role)
		VALUES
		  ('user1@example.com',  'John',    'Doe',    'Manager'),
		  ('user2@example.com',  'Jane',    'Doe',    'Cashier'),
		  ('user3@example.com',  'Alice',   'Smith',  'Manager'),
		  ('user4@example.com',  'Bob',     'Brown',  'Manager'),
		  ('user5@example.com',  'Charlie', 'Davis',  'Cashier'),
		  ('user7@example.com',  'Eve',     'Foster', 'Cashier'),
		  ('user8@example.com',  'Frank',   'Green',  'Cashier'),
		  ('user9@example.com',  'Grace',   'Hill',   'Cashier'),
		  ('user10@example.com', 'Hank',    'Ivy',    'Manager')
		ON CONFLICT (email) DO UPDATE
		  SET first_name = EXCLUDED.first_name,
		      last_name  = EXCLUDED.last_name,
		      role       = EXCLUDED.role;
	`)
	if err != nil {
		log.Fatalf("Failed to restore users: %v", err)
	}

	log.Println("Restoring sale types...")
	_, err = tx.Exec(ctx, `
		INSERT INTO sale_types (name, account, type)
		VALUES
		  ('GCASH',       'A/R - GCASH',      'CHARGE'),
		  ('PAYMAYA',     'A/R - PAYMAYA',    'CHARGE'),
		  ('FOOD PANDA',  'A/R - FOOD PANDA', 'CHARGE'),
		  ('GRAB',        'A/R - FOOD PANDA', 'CHARGE'),
		  ('GIFT CHEQUE', 'A/R - PRODUCT GC', 'CHARGE'),
		  ('DEBIT',       'A/R - DEBIT',      'CHARGE'),
		  ('CREDIT',      'A/R - CREDIT',     'CHARGE')
		ON CONFLICT (name) DO UPDATE
		  SET account = EXCLUDED.account,
		      type    = EXCLUDED.type;
	`)
	if err != nil {
		log.Fatalf("Failed to restore sale types: %v", err)
	}

	log.Println("Restoring catalog...")
	_, err = tx.Exec(ctx, `
		INSERT INTO menus (kind, name, size, price)
		VALUES
		    ('MENU',  'Cheeseburger',                 '',  149.00),
		    ('MENU',  'Cheeseburger Meal',            '',  159.00),
		    ('MENU',  'Burger Ka Sakin',              '',  149.00),
		    ('MENU',  'Burger Ka Sakin Meal',         '',  159.00),
		    ('MENU',  'Spaghetti Bolognese',          '',  179.00),
		    ('MENU',  'Spaghetti Bolognese Meal',     '',  189.00),
		    ('MENU',  'Spaghetti',                    '',  159.00),
		    ('MENU',  'Spaghetti Meal',               '',  169.00),
		    ('MENU',  'Spaghetti w/ Chickensad',      '',  159.00),
		    ('MENU',  'Spaghetti w/ Chickensad Meal', '',  169.00),
		    ('MENU',  'Chickensad',                   '',  159.00),
		    ('MENU',  'Chickensad Meal',              '',  169.00),
		    ('MENU',  'Chicken Sandwich',             '',  159.00),
		    ('MENU',  'Chicken Sandwich Meal',        '',  169.00),
		    ('MENU',  'Grilled Chicken',              '',  249.00),
		    ('MENU',  'Grilled Chicken Meal',         '',  259.00),
		    ('MENU',  'Rice',                         '',   35.00),
		    ('MENU',  'Club Sandwich',                '',  159.00),
		    ('MENU',  'Club Sandwich Meal',           '',  169.00),
		    ('ADDON', 'Cheese',                       'R',  25.00),
		    ('ADDON', 'Bacon',                        'R',  35.00),
		    ('ADDON', 'Rice',                         'R',  35.00),
		    ('ADDON', 'Ice Cream',                    'R',  75.00),
		    ('ADDON', 'Ice Cream',                    'M',  85.00),
		    ('ADDON', 'Ice Cream',                    'L',  95.00),
		    ('ADDON', 'Durian Pie',                   'R',  75.00),
		    ('ADDON', 'Durian Pie',                   'M',  85.00),
		    ('ADDON', 'Durian Pie',                   'L',  95.00),
		    ('ADDON', 'Bisaya Fries',                 'R',  79.00),
		    ('ADDON', 'Bisaya Fries',                 'M',  99.00),
		    ('ADDON', 'Bisaya Fries',                 'L', 119.00),
		    ('DRINK', 'Coke',                         'R',  55.00),
		    ('DRINK', 'Coke',                         'M',  65.00),
		    ('DRINK', 'Coke',                         'L',  75.00),
		    ('DRINK', 'Sprite',                       'R',  55.00),
		    ('DRINK', 'Sprite',                       'M',  65.00),
		    ('DRINK', 'Sprite',                       'L',  75.00),
		    ('DRINK', 'Royal',                        'R',  55.00),
		    ('DRINK', 'Royal',                        'M',  65.00),
		    ('DRINK', 'Royal',                        'L',  75.00),
		    ('DRINK', 'Tea',                          'R',  55.00),
		    ('DRINK', 'Tea',                          'M',  65.00),
		    ('DRINK', 'Tea',                          'L',  75.00),
		    ('DRINK', 'Kape Letse',                   'R',  55.00),
		    ('DRINK', 'Kape Letse',                   'M',  65.00),
		    ('DRINK', 'Kape Letse',                   'L',  75.00),
		    ('DRINK', 'Pinaig na Mais',               'R',  55.00),
		    ('DRINK', 'Pinaig na Mais',               'M',  65.00),
		    ('DRINK', 'Pinaig na Mais',               'L',  75.00)
		ON CONFLICT (kind, name, size) DO UPDATE
		  SET price = EXCLUDED.price;
	`)
	if err != nil {
		log.Fatalf("Failed to restore catalog: %v", err)
	}

	log.Println("Restoring promo and coupon codes...")
	_, err = tx.Exec(ctx, `
		INSERT INTO coupon_promos (code, kind, description, promo_percent, coupon_amount, coupon_item_quantity, expires_at)
		VALUES
		  ('SUMMER15',    'PROMO',  'Summer Sale: 15% off on all orders',              15, 0,      0, now() + interval '1 month'),
		  ('WINTER10',    'PROMO',  'Winter Discount: 10% off storewide',              10, 0,      0, now() + interval '2 months'),
		  ('SPRING20',    'PROMO',  'Spring Promo: 20% off for new customers',         20, 0,      0, now() + interval '45 days'),
		  ('ONLINE25',    'PROMO',  'Exclusive Online Promo: 25% off on select items', 25, 0,      0, now() + interval '30 days'),
		  ('LIMITED5',    'PROMO',  'Limited Time Promo: 5% off your purchase',         5, 0,      0, now() + interval '10 days'),
		  ('FREE_CHEESE', 'COUPON', 'Free Cheeseburger Coupon',                         0, 149.00, 6, now() + interval '20 days'),
		  ('DISC_CHEESE', 'COUPON', 'Discount Coupon: 30 off on Cheeseburger Meal',     0, 30.00,  3, now() + interval '25 days'),
		  ('BKS_COUPON',  'COUPON', 'Combo Coupon: Burger Ka Sakin with free add-on',   0, 75.00,  1, now() + interval '30 days'),
		  ('BACON_SAVE',  'COUPON', 'Discount Coupon: 45 off on Bacon',                 0, 45.00,  2, now() + interval '35 days'),
		  ('FREE_CLUB',   'COUPON', 'Special Coupon: Free Club Sandwich',               0, 179.00, 2, now() + interval '40 days')
		ON CONFLICT (code) DO UPDATE
		  SET description          = EXCLUDED.description,
		      promo_percent        = EXCLUDED.promo_percent,
		      coupon_amount        = EXCLUDED.coupon_amount,
		      coupon_item_quantity = EXCLUDED.coupon_item_quantity,
		      expires_at           = EXCLUDED.expires_at,
		      is_available         = true;
	`)
	if err != nil {
		log.Fatalf("Failed to restore codes: %v", err)
	}

	log.Println("Linking coupons to menu items...")
	_, err = tx.Exec(ctx, `
		INSERT INTO coupon_promo_menus (coupon_promo_id, menu_id)
		SELECT cp.id, m.id
		FROM (VALUES
		    ('FREE_CHEESE', 'MENU',  'Cheeseburger'),
		    ('DISC_CHEESE', 'MENU',  'Cheeseburger Meal'),
		    ('BKS_COUPON',  'MENU',  'Burger Ka Sakin'),
		    ('BKS_COUPON',  'MENU',  'Burger Ka Sakin Meal'),
		    ('BACON_SAVE',  'ADDON', 'Bacon'),
		    ('BACON_SAVE',  'MENU',  'Burger Ka Sakin Meal'),
		    ('FREE_CLUB',   'MENU',  'Club Sandwich'),
		    ('FREE_CLUB',   'MENU',  'Club Sandwich Meal')
		) AS l(code, kind, name)
		JOIN coupon_promos cp ON cp.code = l.code
		JOIN menus m ON m.kind = l.kind AND m.name = l.name
		ON CONFLICT DO NOTHING;
	`)
	if err != nil {
		log.Fatalf("Failed to link coupons: %v", err)
	}

	log.Println("Restoring terminal registration...")
	_, err = tx.Exec(ctx, `
		UPDATE pos_terminal_info
		   SET pos_serial_number    = 'SN-000123',
		       min_number           = 'MIN-000456',
		       accreditation_number = 'ACC-2024-0001',
		       ptu_number           = 'PTU-2024-0001',
		       date_issued          = current_date,
		       valid_until          = current_date + interval '5 years',
		       registered_name      = 'Demo Kitchen',
		       operated_by          = 'Demo Kitchen Inc.',
		       address              = '123 Main St, Manila',
		       vat_tin_number       = '000-123-456-00000',
		       updated_at           = now()
		 WHERE id = 1;
	`)
	if err != nil {
		log.Fatalf("Failed to restore terminal: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit: %v", err)
	}

	log.Println("Seed data restored successfully.")
}
