// One-shot table bootstrap for environments without goose. Mirrors
// migrations/0001_init.sql.
package main

import (
	"log"
	"os"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get DB: %v", err)
	}

	sql := `
	CREATE TABLE IF NOT EXISTS payments (
	  id VARCHAR(64) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  mode VARCHAR(32) NULL,
	  scheme VARCHAR(32) NULL,
	  amount_halalas INT NOT NULL,
	  currency CHAR(3) NOT NULL DEFAULT 'SAR',
	  customer_ref VARCHAR(64) NULL,
	  metadata_json JSON NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS rental_orders (
	  id CHAR(36) NOT NULL,
	  status VARCHAR(32) NOT NULL,
	  site_no VARCHAR(64) NULL,
	  device_no VARCHAR(64) NOT NULL,
	  cart_no VARCHAR(64) NULL,
	  cart_index INT NULL,
	  amount_halalas INT NOT NULL,
	  merchant_no VARCHAR(64) NOT NULL,
	  electricity DOUBLE NULL,
	  return_device_no VARCHAR(64) NULL,
	  notes VARCHAR(512) NOT NULL DEFAULT '',
	  payment_id VARCHAR(64) NULL,
	  unlock_requested_at DATETIME(3) NULL,
	  unlock_confirmed_at DATETIME(3) NULL,
	  returned_at DATETIME(3) NULL,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_rental_orders_status (status),
	  KEY ix_rental_orders_device (device_no),
	  KEY ix_rental_orders_cart (cart_no),
	  KEY ix_rental_orders_created (created_at),
	  UNIQUE KEY ux_rental_orders_payment (payment_id),
	  CONSTRAINT fk_rental_orders_payment FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE RESTRICT
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;

	CREATE TABLE IF NOT EXISTS packages (
	  id INT UNSIGNED NOT NULL AUTO_INCREMENT,
	  set_key VARCHAR(64) NOT NULL,
	  site_type VARCHAR(32) NOT NULL,
	  site_no VARCHAR(64) NULL,
	  name VARCHAR(128) NOT NULL,
	  amount_halalas INT NOT NULL,
	  duration_minutes INT NOT NULL,
	  display_order INT NOT NULL DEFAULT 0,
	  recommended TINYINT NOT NULL DEFAULT 0,
	  active TINYINT NOT NULL DEFAULT 1,
	  created_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3),
	  updated_at DATETIME(3) NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
	  PRIMARY KEY (id),
	  KEY ix_packages_site_type (site_type),
	  KEY ix_packages_site_no (site_no)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`

	if _, err := sqlDB.Exec(sql); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	log.Println("tables created")
}
