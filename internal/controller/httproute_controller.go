package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/go-logr/logr"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
	gatewayv1 "sigs.k8s.io/gateway-api/apis/v1"

	"k8s.io/client-go/util/retry"

	"github.com/yuriy-kovalchuk/alidns-manager/internal/config"
	"github.com/yuriy-kovalchuk/alidns-manager/internal/dns"
)

const (
	finalizerName              = "dns.alidns/cleanup"
	managedHostnamesAnnotation = "dns.alidns/managed-hostnames"
)

// HTTPRouteReconciler keeps A records for HTTPRoute hostnames under Domain.
//
// With Upsert a hostname whose only A record already has the mapped address
// is left alone; otherwise every record under the name is replaced by one A
// record. Without Upsert records are only created for empty names.
// Removing a hostname deletes its records only when all of them are A
// records, since the provider deletes by name and would take TXT or MX
// records the controller never wrote along with them.
type HTTPRouteReconciler struct {
	client.Client
	APIReader client.Reader
	Log       logr.Logger
	DomainMap *config.DomainMap
	DNS       dns.Provider
	Domain    string
	Upsert    bool // when true, replace existing records; when false, only create missing ones
}

func (r *HTTPRouteReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := r.Log.WithValues("httproute", req.NamespacedName)
	ctx = logr.NewContext(ctx, log)

	var route gatewayv1.HTTPRoute
	if err := r.reader().Get(ctx, req.NamespacedName, &route); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	// Handle deletion
	if !route.DeletionTimestamp.IsZero() {
		if controllerutil.ContainsFinalizer(&route, finalizerName) {
			log.Info("deleting DNS records for HTTPRoute")
			for _, hostname := range route.Spec.Hostnames {
				if err := r.deleteHost(ctx, string(hostname)); err != nil {
					return ctrl.Result{}, err
				}
			}

			err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
				if err := r.reader().Get(ctx, req.NamespacedName, &route); err != nil {
					return err
				}
				controllerutil.RemoveFinalizer(&route, finalizerName)
				return r.Update(ctx, &route)
			})
			if err != nil {
				return ctrl.Result{}, fmt.Errorf("failed to remove finalizer: %w", err)
			}
		}
		return ctrl.Result{}, nil
	}

	if !controllerutil.ContainsFinalizer(&route, finalizerName) {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			if err := r.reader().Get(ctx, req.NamespacedName, &route); err != nil {
				return err
			}
			controllerutil.AddFinalizer(&route, finalizerName)
			return r.Update(ctx, &route)
		})
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to add finalizer: %w", err)
		}
		return ctrl.Result{}, nil
	}

	var managedHostnames []string
	if val, ok := route.Annotations[managedHostnamesAnnotation]; ok {
		_ = json.Unmarshal([]byte(val), &managedHostnames)
	}

	currentHostnames := make([]string, 0, len(route.Spec.Hostnames))
	for _, h := range route.Spec.Hostnames {
		if _, ok := dns.RelativeName(string(h), r.Domain); ok {
			currentHostnames = append(currentHostnames, string(h))
		}
	}

	// Delete hostnames that were removed from the spec
	for _, oldHost := range managedHostnames {
		if !Contains(currentHostnames, oldHost) {
			log.Info("hostname removed from HTTPRoute, deleting DNS records", "hostname", oldHost)
			if err := r.deleteHost(ctx, oldHost); err != nil {
				return ctrl.Result{}, err
			}
		}
	}

	for _, hostname := range currentHostnames {
		if err := r.ensureHost(ctx, hostname); err != nil {
			return ctrl.Result{}, err
		}
	}

	// Update annotation with the current list of managed hostnames
	if !reflect.DeepEqual(managedHostnames, currentHostnames) {
		err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
			if err := r.reader().Get(ctx, req.NamespacedName, &route); err != nil {
				return err
			}
			if route.Annotations == nil {
				route.Annotations = make(map[string]string)
			}
			data, _ := json.Marshal(currentHostnames)
			route.Annotations[managedHostnamesAnnotation] = string(data)
			return r.Update(ctx, &route)
		})
		if err != nil {
			return ctrl.Result{}, fmt.Errorf("failed to update managed-hostnames annotation: %w", err)
		}
	}

	return ctrl.Result{}, nil
}

// ensureHost points hostname at its domain map address.
func (r *HTTPRouteReconciler) ensureHost(ctx context.Context, hostname string) error {
	log := logr.FromContextOrDiscard(ctx).WithValues("hostname", hostname)

	ip, ok := r.DomainMap.LookupIP(hostname)
	if !ok {
		log.V(1).Info("no domain mapping found for hostname")
		return nil
	}
	rr, _ := dns.RelativeName(hostname, r.Domain)

	if r.Upsert {
		_, changed, err := dns.EnsureAddress(ctx, r.DNS, rr, r.Domain, ip)
		if err != nil {
			return fmt.Errorf("replacing DNS record for %s: %w", hostname, err)
		}
		if changed {
			log.Info("replaced DNS record", "ip", ip.String())
		} else {
			log.V(1).Info("DNS record up to date")
		}
		return nil
	}

	// Non-upsert path: only create if missing
	existing, err := r.DNS.ListForHost(ctx, dns.FullName(rr, r.Domain), r.Domain)
	if err != nil {
		return fmt.Errorf("checking DNS records for %s: %w", hostname, err)
	}
	if len(existing.Records) > 0 {
		log.V(1).Info("DNS record already exists, skipping")
		return nil
	}
	if _, err := r.DNS.CreateAddress(ctx, rr, r.Domain, ip); err != nil {
		return fmt.Errorf("creating DNS record for %s: %w", hostname, err)
	}
	log.Info("created DNS record", "ip", ip.String())
	return nil
}

// deleteHost removes the records under hostname. Hostnames outside the
// domain, without records, or carrying non-A records are skipped.
func (r *HTTPRouteReconciler) deleteHost(ctx context.Context, hostname string) error {
	rr, ok := dns.RelativeName(hostname, r.Domain)
	if !ok {
		return nil
	}
	existing, err := r.DNS.ListForHost(ctx, dns.FullName(rr, r.Domain), r.Domain)
	if err != nil {
		return fmt.Errorf("checking DNS records for %s: %w", hostname, err)
	}
	if len(existing.Records) == 0 {
		return nil
	}
	for _, rec := range existing.Records {
		if rec.Type != dns.RecordTypeA {
			logr.FromContextOrDiscard(ctx).Info("hostname has non-A records, leaving it in place",
				"hostname", hostname, "type", string(rec.Type))
			return nil
		}
	}
	n, err := r.DNS.DeleteForHost(ctx, rr, r.Domain)
	if err != nil {
		return fmt.Errorf("deleting DNS records for %s: %w", hostname, err)
	}
	logr.FromContextOrDiscard(ctx).Info("deleted DNS records", "hostname", hostname, "count", n)
	return nil
}

func (r *HTTPRouteReconciler) reader() client.Reader {
	if r.APIReader != nil {
		return r.APIReader
	}
	return r.Client
}

func (r *HTTPRouteReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&gatewayv1.HTTPRoute{}).
		WithEventFilter(predicate.Funcs{
			UpdateFunc: func(e event.UpdateEvent) bool {
				// Reconcile if the Spec (Generation) has changed.
				if e.ObjectOld.GetGeneration() != e.ObjectNew.GetGeneration() {
					return true
				}
				// Also reconcile if finalizers have changed (e.g. our finalizer was added).
				if len(e.ObjectOld.GetFinalizers()) != len(e.ObjectNew.GetFinalizers()) {
					return true
				}
				// Ignore status-only updates.
				return false
			},
		}).
		Complete(r)
}
