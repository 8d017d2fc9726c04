package secrets

import "time"

const (
	ENV_KEYVAULT_URL_SECRET_ID = "KEYVAULT_URL_SECRET_ID"
	ENV_VAULT_RETRY_MAX        = "VAULT_RETRY_MAX"
	ENV_VAULT_TIMEOUT          = "VAULT_TIMEOUT"

	// defaults
	VAULT_API_VERSION = "7.4"
	VAULT_RETRY_MAX   = 4
	VAULT_TIMEOUT     = 30 * time.Second
)
