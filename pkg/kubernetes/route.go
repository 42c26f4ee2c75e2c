package kubernetes

import (
	"context"
	"fmt"
	"log"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/discovery"
	"k8s.io/client-go/dynamic"
)

var routeGVR = schema.GroupVersionResource{
	Group:    "route.openshift.io",
	Version:  "v1",
	Resource: "routes",
}

// RouteClient handles OpenShift Route operations through the dynamic client.
// Routes are not part of the core API, so they are handled unstructured.
type RouteClient struct {
	dynamicClient dynamic.Interface
	namespace     string
}

// NewRouteClient creates a new Route client
func NewRouteClient(dynamicClient dynamic.Interface, namespace string) *RouteClient {
	return &RouteClient{
		dynamicClient: dynamicClient,
		namespace:     namespace,
	}
}

// RouteAPIAvailable reports whether the cluster serves route.openshift.io/v1.
func RouteAPIAvailable(discoveryClient discovery.DiscoveryInterface) bool {
	resources, err := discoveryClient.ServerResourcesForGroupVersion("route.openshift.io/v1")
	if err != nil {
		return false
	}
	for _, r := range resources.APIResources {
		if r.Name == "routes" {
			return true
		}
	}
	return false
}

// EnsureRoute creates an edge-terminated route to the service if it doesn't exist.
func (c *RouteClient) EnsureRoute(ctx context.Context, name, serviceName string) error {
	route := &unstructured.Unstructured{
		Object: map[string]interface{}{
			"apiVersion": "route.openshift.io/v1",
			"kind":       "Route",
			"metadata": map[string]interface{}{
				"name":      name,
				"namespace": c.namespace,
				"labels": map[string]interface{}{
					"app":        name,
					"managed-by": "llamactl",
				},
			},
			"spec": map[string]interface{}{
				"to": map[string]interface{}{
					"kind": "Service",
					"name": serviceName,
				},
				"port": map[string]interface{}{
					"targetPort": "http",
				},
				"tls": map[string]interface{}{
					"termination":                   "edge",
					"insecureEdgeTerminationPolicy": "Redirect",
				},
			},
		},
	}

	_, err := c.dynamicClient.Resource(routeGVR).Namespace(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			_, err = c.dynamicClient.Resource(routeGVR).Namespace(c.namespace).Create(ctx, route, metav1.CreateOptions{})
			if err != nil {
				return fmt.Errorf("failed to create route: %w", err)
			}
			log.Printf("Created Route %s/%s -> Service %s", c.namespace, name, serviceName)
			return nil
		}
		return fmt.Errorf("failed to get route: %w", err)
	}

	log.Printf("Route %s/%s already exists", c.namespace, name)
	return nil
}

// RouteURL returns the externally reachable URL for a route. A missing route
// yields an empty string, not an error, so callers can report "not exposed".
func (c *RouteClient) RouteURL(ctx context.Context, name string) (string, error) {
	route, err := c.dynamicClient.Resource(routeGVR).Namespace(c.namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get route: %w", err)
	}

	host, found, err := unstructured.NestedString(route.Object, "spec", "host")
	if err != nil || !found || host == "" {
		return "", nil
	}

	scheme := "http"
	if _, found, _ := unstructured.NestedMap(route.Object, "spec", "tls"); found {
		scheme = "https"
	}

	return fmt.Sprintf("%s://%s", scheme, host), nil
}

// DeleteRoute removes a route, tolerating not-found.
func (c *RouteClient) DeleteRoute(ctx context.Context, name string) error {
	err := c.dynamicClient.Resource(routeGVR).Namespace(c.namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return nil
}
