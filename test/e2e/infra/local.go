package infra

import (
	"context"
	"fmt"
	"net/http/httptest"

	"github.com/vmware/govmomi/simulator"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/cli"
	"github.com/backupqa/qa-agent/internal/config"
	"github.com/backupqa/qa-agent/test/fakeproduct"
)

// LocalInfraManager runs the fake product, vcsim and the agent in the test process.
type LocalInfraManager struct {
	product *fakeproduct.Server
	model   *simulator.Model
	vcsim   *simulator.Server
	agent   *cli.Agent
	http    *httptest.Server
}

func NewLocalInfraManager() *LocalInfraManager {
	return &LocalInfraManager{}
}

// Product gives tests control over job scripts and registry values.
func (l *LocalInfraManager) Product() *fakeproduct.Server {
	return l.product
}

func (l *LocalInfraManager) StartProduct() error {
	p, err := fakeproduct.New()
	if err != nil {
		return err
	}
	l.product = p
	zap.S().Named("e2e").Infow("fake product started", "url", p.URL())
	return nil
}

func (l *LocalInfraManager) StopProduct() error {
	if l.product != nil {
		l.product.Close()
		l.product = nil
	}
	return nil
}

func (l *LocalInfraManager) StartVcsim() error {
	model := simulator.VPX()
	if err := model.Create(); err != nil {
		return fmt.Errorf("creating vcsim model: %w", err)
	}
	l.model = model
	l.vcsim = model.Service.NewServer()
	zap.S().Named("e2e").Infow("vcsim started", "url", l.vcsim.URL.Host)
	return nil
}

func (l *LocalInfraManager) StopVcsim() error {
	if l.vcsim != nil {
		l.vcsim.Close()
		l.model.Remove()
		l.vcsim, l.model = nil, nil
	}
	return nil
}

// StartAgent assembles the agent the way the serve command does and serves its API.
func (l *LocalInfraManager) StartAgent(ac AgentConfig) (string, error) {
	cfg, err := config.NewConfiguration()
	if err != nil {
		return "", err
	}
	if ac.NumWorkers > 0 {
		cfg.Agent.NumWorkers = ac.NumWorkers
	}
	if ac.WaitInterval > 0 {
		cfg.Waiter.Interval = ac.WaitInterval
	}
	if ac.WaitTimeout > 0 {
		cfg.Waiter.Timeout = ac.WaitTimeout
	}

	if l.product != nil {
		cfg.Product.URL = l.product.URL()
		cfg.Product.Username = fakeproduct.DefaultUsername
		cfg.Product.Password = fakeproduct.DefaultPassword
	}
	if l.vcsim != nil {
		u := *l.vcsim.URL
		cfg.VSphere.Username = u.User.Username()
		cfg.VSphere.Password, _ = u.User.Password()
		u.User = nil
		cfg.VSphere.URL = u.String()
		cfg.VSphere.Insecure = true
	}

	agent, err := cli.NewAgent(context.Background(), cfg)
	if err != nil {
		return "", err
	}
	srv, err := agent.NewServer()
	if err != nil {
		agent.Close()
		return "", err
	}

	l.agent = agent
	l.http = httptest.NewServer(srv.Handler())
	return l.http.URL, nil
}

func (l *LocalInfraManager) StopAgent() error {
	if l.http != nil {
		l.http.Close()
		l.http = nil
	}
	if l.agent != nil {
		l.agent.Close()
		l.agent = nil
	}
	return nil
}
