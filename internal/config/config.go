// Package config collects the environment the service boots with. Values come
// from real env vars in production and from .env in development (loaded by
// main before Load runs).
package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port  string
	DBDSN string

	// Vendor platform
	VendorBaseURL         string
	MerchantNo            string
	DeviceType            string
	MerchantPrivateKeyB64 string
	VendorPublicKeyB64    string
	CallbackVerify        bool

	// Payment gateway
	MoyasarAPIURL    string
	MoyasarSecretKey string
	Currency         string
}

func Load() (Config, error) {
	cfg := Config{
		Port:                  getenv("PORT", "4000"),
		DBDSN:                 os.Getenv("DB_DSN"),
		VendorBaseURL:         os.Getenv("BASE_URL"),
		MerchantNo:            os.Getenv("MERCHANT_NO"),
		DeviceType:            getenv("DEVICE_TYPE", "CHILD_MACHINE"),
		MerchantPrivateKeyB64: os.Getenv("MERCHANT_PRIVATE_KEY_B64"),
		VendorPublicKeyB64:    os.Getenv("VENDOR_PUBLIC_KEY_B64"),
		CallbackVerify:        strings.EqualFold(os.Getenv("CALLBACK_VERIFY"), "true"),
		MoyasarAPIURL:         getenv("MOYASAR_API_URL", "https://api.moyasar.com"),
		MoyasarSecretKey:      os.Getenv("MOYASAR_SECRET_KEY"),
		Currency:              getenv("CURRENCY", "SAR"),
	}

	var missing []string
	for name, v := range map[string]string{
		"DB_DSN":                   cfg.DBDSN,
		"BASE_URL":                 cfg.VendorBaseURL,
		"MERCHANT_NO":              cfg.MerchantNo,
		"MERCHANT_PRIVATE_KEY_B64": cfg.MerchantPrivateKeyB64,
		"MOYASAR_SECRET_KEY":       cfg.MoyasarSecretKey,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}
	if cfg.CallbackVerify && cfg.VendorPublicKeyB64 == "" {
		return Config{}, fmt.Errorf("CALLBACK_VERIFY=true requires VENDOR_PUBLIC_KEY_B64")
	}
	return cfg, nil
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
