// Package rbac verifies that the current credentials can manage the
// resources llamactl deploys, before any of them are touched.
package rbac

import (
	"context"
	"fmt"
	"strings"

	authv1 "k8s.io/api/authorization/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// RequiredPermission represents a permission that needs to be verified
type RequiredPermission struct {
	APIGroup  string
	Resource  string
	Verb      string
	Namespace string // empty for cluster-scoped
}

// GetRequiredPermissions returns the list of permissions required to deploy
// the llama.cpp resource set into the given namespace.
func GetRequiredPermissions(namespace string, includeRoutes bool) []RequiredPermission {
	permissions := []RequiredPermission{
		// Cluster-scoped
		{APIGroup: "", Resource: "namespaces", Verb: "get", Namespace: ""},
		{APIGroup: "", Resource: "namespaces", Verb: "create", Namespace: ""},

		// Namespace-scoped
		{APIGroup: "", Resource: "persistentvolumeclaims", Verb: "get", Namespace: namespace},
		{APIGroup: "", Resource: "persistentvolumeclaims", Verb: "create", Namespace: namespace},
		{APIGroup: "", Resource: "configmaps", Verb: "get", Namespace: namespace},
		{APIGroup: "", Resource: "configmaps", Verb: "create", Namespace: namespace},
		{APIGroup: "", Resource: "configmaps", Verb: "update", Namespace: namespace},
		{APIGroup: "", Resource: "services", Verb: "get", Namespace: namespace},
		{APIGroup: "", Resource: "services", Verb: "create", Namespace: namespace},
		{APIGroup: "apps", Resource: "deployments", Verb: "get", Namespace: namespace},
		{APIGroup: "apps", Resource: "deployments", Verb: "create", Namespace: namespace},
	}

	if includeRoutes {
		permissions = append(permissions,
			RequiredPermission{APIGroup: "route.openshift.io", Resource: "routes", Verb: "get", Namespace: namespace},
			RequiredPermission{APIGroup: "route.openshift.io", Resource: "routes", Verb: "create", Namespace: namespace},
		)
	}

	return permissions
}

// VerifyPermissions checks if the current credentials hold all required
// permissions, aggregating every missing one into a single error.
func VerifyPermissions(ctx context.Context, clientset kubernetes.Interface, namespace string, includeRoutes bool) error {
	permissions := GetRequiredPermissions(namespace, includeRoutes)
	var missingPermissions []string

	for _, perm := range permissions {
		allowed, err := CheckPermission(ctx, clientset, perm)
		if err != nil {
			return fmt.Errorf("failed to check permission %s/%s:%s: %w", perm.APIGroup, perm.Resource, perm.Verb, err)
		}

		if !allowed {
			scope := "cluster-scoped"
			if perm.Namespace != "" {
				scope = fmt.Sprintf("namespace=%s", perm.Namespace)
			}
			missingPermissions = append(missingPermissions, fmt.Sprintf("  - %s %s.%s (%s)", perm.Verb, perm.Resource, perm.APIGroup, scope))
		}
	}

	if len(missingPermissions) > 0 {
		return fmt.Errorf("missing required RBAC permissions:\n%s",
			strings.Join(missingPermissions, "\n"))
	}

	return nil
}

// CheckPermission verifies if a specific permission is granted
func CheckPermission(ctx context.Context, clientset kubernetes.Interface, perm RequiredPermission) (bool, error) {
	sar := &authv1.SelfSubjectAccessReview{
		Spec: authv1.SelfSubjectAccessReviewSpec{
			ResourceAttributes: &authv1.ResourceAttributes{
				Verb:      perm.Verb,
				Group:     perm.APIGroup,
				Resource:  perm.Resource,
				Namespace: perm.Namespace,
			},
		},
	}

	result, err := clientset.AuthorizationV1().SelfSubjectAccessReviews().Create(ctx, sar, metav1.CreateOptions{})
	if err != nil {
		return false, err
	}

	return result.Status.Allowed, nil
}
