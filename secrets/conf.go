package secrets

import (
	"time"

	"github.com/mikeblum/graph-bulk-import/conf"
)

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

// SecretID is the full secret URL, e.g. https://<vault>.vault.azure.net/secrets/<name>.
func (c *Conf) SecretID() string {
	return c.GetEnv(ENV_KEYVAULT_URL_SECRET_ID, "")
}

func (c *Conf) retryMax() int {
	return c.GetInt(ENV_VAULT_RETRY_MAX, VAULT_RETRY_MAX)
}

func (c *Conf) timeout() time.Duration {
	return c.GetDuration(ENV_VAULT_TIMEOUT, VAULT_TIMEOUT)
}
