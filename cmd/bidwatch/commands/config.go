package commands

import (
	"time"

	"bidwatch/lib/configutil"
	"bidwatch/lib/restyutil"
	"bidwatch/lib/scrapers/epoint"
	"bidwatch/lib/serviceutil"
	"bidwatch/services/monitor"
	"bidwatch/services/publisher"

	"dario.cat/mergo"
)

type GatewayConfig struct {
	BaseUrl          string `json:"base_url"`
	SiteGuid         string `json:"site_guid"`
	RetryWaitSeconds int    `json:"retry_wait_seconds"`
}

type Config struct {
	Gateway  GatewayConfig     `json:"gateway"`
	Monitor  monitor.Config    `json:"monitor"`
	Repo     publisher.Options `json:"repo"`
	Schedule publisher.Rule    `json:"schedule"`
}

func defaultConfig() Config {
	return Config{
		Gateway: GatewayConfig{
			BaseUrl:          "https://ggzy.sc.yichang.gov.cn",
			SiteGuid:         "7eb5f7f1-9041-43ad-8e13-8fcb82ea831a",
			RetryWaitSeconds: 5,
		},
		Monitor: monitor.DefaultConfig(),
		Repo: publisher.Options{
			Branch: "main",
			Dir:    ".dev/checkout",
		},
		Schedule: publisher.Rule{EveryMinutes: 30},
	}
}

func loadConfig() Config {
	cfg, err := configutil.ReadConfig[Config](configFile)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	err = mergo.Merge(&cfg, defaultConfig())
	if err != nil {
		serviceutil.Fatal("failed to apply config defaults", err)
	}
	return cfg
}

// buildServices wires the producer and the publisher around the same
// working copy so the artifacts the monitor writes are the files the
// publisher stages.
func buildServices(cfg Config) (*monitor.Service, *publisher.Publisher) {
	client, err := epoint.NewClient(epoint.ClientOptions{
		BaseUrl:   cfg.Gateway.BaseUrl,
		SiteGuid:  cfg.Gateway.SiteGuid,
		RetryWait: time.Duration(cfg.Gateway.RetryWaitSeconds) * time.Second,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize platform client", err)
	}
	client.SetDumpOutput(restyutil.NewFilesystemOutput(".dev/resty/epoint"))

	svc := monitor.NewService(client, cfg.Monitor, cfg.Repo.Dir)

	opts := cfg.Repo
	opts.Files = svc.ArtifactFiles()
	pub, err := publisher.New(opts)
	if err != nil {
		serviceutil.Fatal("failed to initialize publisher", err)
	}
	return svc, pub
}
