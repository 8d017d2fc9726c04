package auth

import "github.com/mikeblum/graph-bulk-import/conf"

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

func (c *Conf) Authority() string {
	return c.GetEnv(ENV_AUTHORITY, AUTHORITY)
}

func (c *Conf) CertificateDir() string {
	return c.GetEnv(ENV_CERTIFICATE_DIR, CERTIFICATE_DIR)
}

func (c *Conf) ClientID() string {
	return c.GetEnv(ENV_CLIENT_ID, "")
}

func (c *Conf) Thumbprint() string {
	return c.GetEnv(ENV_THUMBPRINT_CERTIFICATE, "")
}
