package auth

const (
	ENV_AUTHORITY              = "AUTHORITY"
	ENV_CERTIFICATE_DIR        = "CERTIFICATE_DIR"
	ENV_CLIENT_ID              = "CLIENT_ID"
	ENV_THUMBPRINT_CERTIFICATE = "THUMBPRINT_CERTIFICATE"

	// defaults
	AUTHORITY       = "https://login.microsoftonline.com/common"
	CERTIFICATE_DIR = "certs"

	// scope of the secret vault token
	VAULT_SCOPE = "https://vault.azure.net/.default"
)
