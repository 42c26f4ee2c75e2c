package cmd

import (
	"log"

	"github.com/ocp-llama/llamactl/pkg/kubernetes"
)

// buildManager wires the cluster clients and the resource manager. Route
// support is detected from the discovery API: plain Kubernetes clusters do
// not serve route.openshift.io and get routes skipped.
func buildManager(cfg *kubernetes.Config) (*kubernetes.Manager, *kubernetes.Clients, error) {
	restConfig, err := kubernetes.BuildRESTConfig(kubeconfig)
	if err != nil {
		return nil, nil, err
	}

	clients, err := kubernetes.NewClients(restConfig)
	if err != nil {
		return nil, nil, err
	}

	var routes *kubernetes.RouteClient
	if kubernetes.RouteAPIAvailable(clients.Discovery) {
		routes = kubernetes.NewRouteClient(clients.Dynamic, cfg.Namespace)
	} else {
		log.Printf("⚠️  route.openshift.io not served by this cluster, routes will be skipped")
	}

	return kubernetes.NewManager(clients.Clientset, routes, cfg), clients, nil
}
