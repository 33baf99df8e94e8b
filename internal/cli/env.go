package cli

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vmware/govmomi"
	"github.com/vmware/govmomi/vim25/soap"
	"go.uber.org/zap"

	"github.com/backupqa/qa-agent/internal/config"
	"github.com/backupqa/qa-agent/pkg/productapi"
	"github.com/backupqa/qa-agent/pkg/testcase"
	"github.com/backupqa/qa-agent/pkg/vmware"
	"github.com/backupqa/qa-agent/pkg/waiter"
)

func newWaiter(cfg *config.Configuration) *waiter.JobWaiter {
	return waiter.New(
		waiter.WithTimeout(cfg.Waiter.Timeout),
		waiter.WithInterval(cfg.Waiter.Interval),
	)
}

func newProductClient(cfg *config.Configuration) (*productapi.Client, error) {
	if !cfg.Product.Enabled() {
		return nil, fmt.Errorf("product url is not configured: set --product-url or %s_PRODUCT_URL", config.EnvPrefix)
	}
	opts := []productapi.Option{
		productapi.WithCredentials(cfg.Product.Username, cfg.Product.Password),
		productapi.WithRetries(cfg.Product.MaxRetries, cfg.Product.RetryWindow),
	}
	if cfg.Product.Token != "" {
		opts = append(opts, productapi.WithToken(cfg.Product.Token))
	}
	return productapi.NewClient(cfg.Product.URL, opts...)
}

func newVSphereClient(ctx context.Context, cfg *config.Configuration) (*govmomi.Client, error) {
	u, err := soap.ParseURL(cfg.VSphere.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid vSphere url: %w", err)
	}
	u.User = url.UserPassword(cfg.VSphere.Username, cfg.VSphere.Password)

	c, err := govmomi.NewClient(ctx, u, cfg.VSphere.Insecure)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vSphere: %w", err)
	}
	return c, nil
}

// newEnv builds the testcase environment from the configured backends.
// The returned func releases the vSphere session.
func newEnv(ctx context.Context, cfg *config.Configuration) (testcase.Env, func(), error) {
	env := testcase.Env{Waiter: newWaiter(cfg)}
	cleanup := func() {}

	if cfg.Product.Enabled() {
		client, err := newProductClient(cfg)
		if err != nil {
			return env, cleanup, err
		}
		env.Product = client
	}

	if cfg.VSphere.Enabled() {
		c, err := newVSphereClient(ctx, cfg)
		if err != nil {
			return env, cleanup, err
		}
		env.VMs = vmware.NewVMManager(c.Client, cfg.VSphere.Username)
		cleanup = func() {
			if err := c.Logout(context.Background()); err != nil {
				zap.S().Named("cli").Warnw("failed to log out of vSphere", "error", err)
			}
		}
	}

	return env, cleanup, nil
}
