package kubernetes

import (
	"context"
	"fmt"
	"log"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// VariantStatus describes one deployment variant.
type VariantStatus struct {
	Name            string `json:"name"`
	DesiredReplicas int32  `json:"desired_replicas"`
	ReadyReplicas   int32  `json:"ready_replicas"`
	RouteURL        string `json:"route_url,omitempty"`
}

// ClusterStatus aggregates the state of the managed resources.
type ClusterStatus struct {
	Namespace string          `json:"namespace"`
	PVCPhase  string          `json:"pvc_phase"`
	Variants  []VariantStatus `json:"variants"`
}

// Status reads back the state of the managed resources. Missing resources are
// reported as absent rather than failing the whole read.
func (m *Manager) Status(ctx context.Context) (*ClusterStatus, error) {
	status := &ClusterStatus{Namespace: m.config.Namespace}

	pvc, err := m.clientset.CoreV1().PersistentVolumeClaims(m.config.Namespace).Get(ctx, m.config.PVCName, metav1.GetOptions{})
	switch {
	case err == nil:
		status.PVCPhase = string(pvc.Status.Phase)
	case errors.IsNotFound(err):
		status.PVCPhase = "NotFound"
	default:
		return nil, fmt.Errorf("failed to get pvc: %w", err)
	}

	for _, variant := range m.config.Variants {
		vs := VariantStatus{Name: m.config.DeploymentName(variant)}

		dep, err := m.clientset.AppsV1().Deployments(m.config.Namespace).Get(ctx, m.config.DeploymentName(variant), metav1.GetOptions{})
		switch {
		case err == nil:
			if dep.Spec.Replicas != nil {
				vs.DesiredReplicas = *dep.Spec.Replicas
			}
			vs.ReadyReplicas = dep.Status.ReadyReplicas
		case errors.IsNotFound(err):
			// Reported with zero replicas.
		default:
			return nil, fmt.Errorf("failed to get deployment: %w", err)
		}

		if m.routes != nil {
			url, err := m.routes.RouteURL(ctx, m.config.RouteName(variant))
			if err != nil {
				return nil, err
			}
			vs.RouteURL = url
		}

		status.Variants = append(status.Variants, vs)
	}

	return status, nil
}

// Teardown deletes the managed resources in reverse order of creation,
// tolerating not-found. The namespace itself is left in place unless
// deleteNamespace is set.
func (m *Manager) Teardown(ctx context.Context, deleteNamespace bool) error {
	for _, variant := range m.config.Variants {
		if m.routes != nil {
			if err := m.routes.DeleteRoute(ctx, m.config.RouteName(variant)); err != nil {
				return err
			}
			log.Printf("Deleted Route %s/%s", m.config.Namespace, m.config.RouteName(variant))
		}

		err := m.clientset.CoreV1().Services(m.config.Namespace).Delete(ctx, m.config.ServiceName(variant), metav1.DeleteOptions{})
		if err != nil && !errors.IsNotFound(err) {
			return fmt.Errorf("failed to delete service: %w", err)
		}

		err = m.clientset.AppsV1().Deployments(m.config.Namespace).Delete(ctx, m.config.DeploymentName(variant), metav1.DeleteOptions{})
		if err != nil && !errors.IsNotFound(err) {
			return fmt.Errorf("failed to delete deployment: %w", err)
		}
		log.Printf("Deleted Deployment %s/%s", m.config.Namespace, m.config.DeploymentName(variant))
	}

	err := m.clientset.CoreV1().ConfigMaps(m.config.Namespace).Delete(ctx, m.config.ConfigMapName, metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		return fmt.Errorf("failed to delete configmap: %w", err)
	}

	err = m.clientset.CoreV1().PersistentVolumeClaims(m.config.Namespace).Delete(ctx, m.config.PVCName, metav1.DeleteOptions{})
	if err != nil && !errors.IsNotFound(err) {
		return fmt.Errorf("failed to delete pvc: %w", err)
	}
	log.Printf("Deleted PVC %s/%s", m.config.Namespace, m.config.PVCName)

	if deleteNamespace {
		err = m.clientset.CoreV1().Namespaces().Delete(ctx, m.config.Namespace, metav1.DeleteOptions{})
		if err != nil && !errors.IsNotFound(err) {
			return fmt.Errorf("failed to delete namespace: %w", err)
		}
		log.Printf("Deleted Namespace %s", m.config.Namespace)
	}

	return nil
}
