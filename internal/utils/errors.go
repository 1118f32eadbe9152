package utils

import "errors"

// ----------------- storage ------------------
var (
	ErrStorageEmptyHostName       = errors.New("host name is empty")
	ErrStorageInvalidPortNumber   = errors.New("port number is invalid")
	ErrStorageEmptyUsername       = errors.New("username is empty")
	ErrStorageEmptyPassword       = errors.New("password is empty")
	ErrStorageInvalidDatabaseName = errors.New("database name is empty")
	ErrStorageInvalidSslMode      = errors.New("SSL mode is invalid")
	ErrStorageInvalidPoolSize     = errors.New("pool size is invalid")
	ErrStorageInvalidTimeout      = errors.New("timeout is invalid")
)

// ----------------- catalog ------------------
var (
	ErrInvalidProductID = errors.New("invalid product id")
	ErrProductNotFound  = errors.New("product not found")
	ErrEmptySKU         = errors.New("sku is required")
	ErrEmptyName        = errors.New("name is required")

	ErrWebhookNotFound  = errors.New("webhook not found")
	ErrInvalidWebhook   = errors.New("webhook name and target url are required")
	ErrInvalidEventType = errors.New("unknown event type")

	// ErrSKUConflict возвращается при нарушении уникальности канонического
	// SKU на уровне хранилища
	ErrSKUConflict = errors.New("product with the same sku already exists")
)
