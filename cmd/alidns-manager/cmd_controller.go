package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/config"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/controller"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(gatewayv1.Install(scheme))
}

func newCmdController() *cobra.Command {
	var (
		metricsAddr string
		probeAddr   string
	)

	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Run the HTTPRoute controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := ctrl.Log.WithName("setup")
			log.Info("starting alidns-manager controller", "version", version)

			domainMapPath := os.Getenv("DOMAIN_MAP_PATH")
			if domainMapPath == "" {
				domainMapPath = "configs/domain-map.yaml"
			}
			domainMap, err := config.LoadDomainMap(domainMapPath)
			if err != nil {
				return fmt.Errorf("unable to load domain map: %w", err)
			}
			log.Info("loaded domain map", "path", domainMapPath, "entries", domainMap.Len())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log.Info("loaded config", "domain", cfg.Domain, "upsert", cfg.Upsert)

			client, err := newProvider(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
				Scheme:                 scheme,
				Metrics:                metricsserver.Options{BindAddress: metricsAddr},
				HealthProbeBindAddress: probeAddr,
			})
			if err != nil {
				return fmt.Errorf("unable to create manager: %w", err)
			}

			if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
				return fmt.Errorf("unable to set up health check: %w", err)
			}
			if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
				return fmt.Errorf("unable to set up ready check: %w", err)
			}

			reconciler := &controller.HTTPRouteReconciler{
				Client:    mgr.GetClient(),
				APIReader: mgr.GetAPIReader(),
				Log:       ctrl.Log.WithName("httproute-controller"),
				DomainMap: domainMap,
				DNS:       client,
				Domain:    cfg.Domain,
				Upsert:    cfg.Upsert,
			}
			if err := reconciler.SetupWithManager(mgr); err != nil {
				return fmt.Errorf("unable to set up HTTPRoute controller: %w", err)
			}

			log.Info("starting manager")
			if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
				return fmt.Errorf("manager exited with error: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":9090", "Metrics endpoint address")
	cmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "Health probe address")
	return cmd
}
