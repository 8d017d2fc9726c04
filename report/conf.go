package report

import "github.com/mikeblum/graph-bulk-import/conf"

type Conf struct {
	conf.EnvConf
}

func NewConf() *Conf {
	return &Conf{conf.NewEnvConf()}
}

func (c *Conf) BadDocumentsDir() string {
	return c.GetEnv(ENV_BAD_DOCUMENTS_DIR, BAD_DOCUMENTS_DIR)
}
