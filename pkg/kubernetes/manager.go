package kubernetes

import (
	"context"
	"fmt"
	"log"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/client-go/kubernetes"

	"github.com/ocp-llama/llamactl/pkg/models"
)

const (
	downloaderImage = "curlimages/curl:8.5.0"
	serverPort      = 8080
)

// Manager handles Kubernetes resource management for the llama.cpp deployment
type Manager struct {
	clientset kubernetes.Interface
	routes    *RouteClient
	config    *Config
}

// NewManager creates a new Manager. routes may be nil when the cluster does
// not serve the route.openshift.io API; route steps are then skipped.
func NewManager(clientset kubernetes.Interface, routes *RouteClient, config *Config) *Manager {
	return &Manager{
		clientset: clientset,
		routes:    routes,
		config:    config,
	}
}

// EnsureStorage applies the namespace, the model storage claim and the model
// configmap. Already-existing resources are tolerated; the first hard failure
// aborts. Callers wait for the claim to bind before ensuring workloads.
func (m *Manager) EnsureStorage(ctx context.Context, profile *models.Profile) error {
	if err := m.ensureNamespace(ctx); err != nil {
		return fmt.Errorf("failed to ensure namespace: %w", err)
	}

	if err := m.ensurePVC(ctx); err != nil {
		return fmt.Errorf("failed to ensure pvc: %w", err)
	}

	if err := m.ensureConfigMap(ctx, profile); err != nil {
		return fmt.Errorf("failed to ensure configmap: %w", err)
	}

	return nil
}

// EnsureWorkloads applies deployment, service and route for every enabled
// variant.
func (m *Manager) EnsureWorkloads(ctx context.Context, profile *models.Profile) error {
	for _, variant := range m.config.Variants {
		if err := m.ensureDeployment(ctx, variant, profile); err != nil {
			return fmt.Errorf("failed to ensure %s deployment: %w", variant, err)
		}
		if err := m.ensureService(ctx, variant); err != nil {
			return fmt.Errorf("failed to ensure %s service: %w", variant, err)
		}
		if m.routes == nil {
			log.Printf("Route API not available, skipping route for %s", m.config.RouteName(variant))
			continue
		}
		if err := m.routes.EnsureRoute(ctx, m.config.RouteName(variant), m.config.ServiceName(variant)); err != nil {
			return fmt.Errorf("failed to ensure %s route: %w", variant, err)
		}
	}

	return nil
}

// ensureNamespace creates the namespace if it doesn't exist
func (m *Manager) ensureNamespace(ctx context.Context) error {
	namespace := &corev1.Namespace{
		ObjectMeta: metav1.ObjectMeta{
			Name: m.config.Namespace,
			Labels: map[string]string{
				"app":        "llama-cpp",
				"managed-by": "llamactl",
			},
		},
	}

	_, err := m.clientset.CoreV1().Namespaces().Create(ctx, namespace, metav1.CreateOptions{})
	if err != nil {
		if errors.IsAlreadyExists(err) {
			log.Printf("Namespace %s already exists", m.config.Namespace)
			return nil
		}
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	log.Printf("Created Namespace %s", m.config.Namespace)
	return nil
}

// ensurePVC creates the model storage claim if it doesn't exist
func (m *Manager) ensurePVC(ctx context.Context) error {
	accessMode := corev1.ReadWriteMany
	if m.config.PVCAccessMode == "ReadWriteOnce" {
		accessMode = corev1.ReadWriteOnce
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.config.PVCName,
			Namespace: m.config.Namespace,
			Labels: map[string]string{
				"app":        "llama-cpp",
				"managed-by": "llamactl",
			},
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{accessMode},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: resource.MustParse(m.config.PVCSize),
				},
			},
		},
	}

	_, err := m.clientset.CoreV1().PersistentVolumeClaims(m.config.Namespace).Get(ctx, m.config.PVCName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			_, err = m.clientset.CoreV1().PersistentVolumeClaims(m.config.Namespace).Create(ctx, pvc, metav1.CreateOptions{})
			if err != nil {
				return fmt.Errorf("failed to create pvc: %w", err)
			}
			log.Printf("Created PVC %s/%s (%s, %s)", m.config.Namespace, m.config.PVCName, m.config.PVCSize, m.config.PVCAccessMode)
			return nil
		}
		return fmt.Errorf("failed to get pvc: %w", err)
	}

	log.Printf("PVC %s/%s already exists", m.config.Namespace, m.config.PVCName)
	return nil
}

// ensureConfigMap creates or updates the model ConfigMap
func (m *Manager) ensureConfigMap(ctx context.Context, profile *models.Profile) error {
	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      m.config.ConfigMapName,
			Namespace: m.config.Namespace,
			Labels: map[string]string{
				"app":        "llama-cpp",
				"managed-by": "llamactl",
			},
		},
		Data: profile.ToConfigMapData(),
	}

	existing, err := m.clientset.CoreV1().ConfigMaps(m.config.Namespace).Get(ctx, m.config.ConfigMapName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			_, err = m.clientset.CoreV1().ConfigMaps(m.config.Namespace).Create(ctx, configMap, metav1.CreateOptions{})
			if err != nil {
				return fmt.Errorf("failed to create configmap: %w", err)
			}
			log.Printf("Created ConfigMap %s/%s", m.config.Namespace, m.config.ConfigMapName)
			return nil
		}
		return fmt.Errorf("failed to get configmap: %w", err)
	}

	existing.Data = configMap.Data
	_, err = m.clientset.CoreV1().ConfigMaps(m.config.Namespace).Update(ctx, existing, metav1.UpdateOptions{})
	if err != nil {
		return fmt.Errorf("failed to update configmap: %w", err)
	}
	log.Printf("Updated ConfigMap %s/%s", m.config.Namespace, m.config.ConfigMapName)
	return nil
}

// ensureService creates the variant's service if it doesn't exist
func (m *Manager) ensureService(ctx context.Context, variant string) error {
	serviceName := m.config.ServiceName(variant)
	service := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      serviceName,
			Namespace: m.config.Namespace,
			Labels: map[string]string{
				"app":        m.config.DeploymentName(variant),
				"managed-by": "llamactl",
			},
		},
		Spec: corev1.ServiceSpec{
			Selector: map[string]string{
				"app": m.config.DeploymentName(variant),
			},
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Protocol:   corev1.ProtocolTCP,
					Port:       serverPort,
					TargetPort: intstr.FromString("http"),
				},
			},
			Type: corev1.ServiceTypeClusterIP,
		},
	}

	_, err := m.clientset.CoreV1().Services(m.config.Namespace).Get(ctx, serviceName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			_, err = m.clientset.CoreV1().Services(m.config.Namespace).Create(ctx, service, metav1.CreateOptions{})
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			log.Printf("Created Service %s/%s", m.config.Namespace, serviceName)
			return nil
		}
		return fmt.Errorf("failed to get service: %w", err)
	}

	log.Printf("Service %s/%s already exists", m.config.Namespace, serviceName)
	return nil
}

// ensureDeployment creates the variant's deployment if it doesn't exist
func (m *Manager) ensureDeployment(ctx context.Context, variant string, profile *models.Profile) error {
	name := m.config.DeploymentName(variant)
	replicas := int32(1)

	deployment := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: m.config.Namespace,
			Labels: map[string]string{
				"app":        name,
				"managed-by": "llamactl",
			},
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: &replicas,
			Strategy: appsv1.DeploymentStrategy{
				Type: appsv1.RecreateDeploymentStrategyType,
			},
			Selector: &metav1.LabelSelector{
				MatchLabels: map[string]string{
					"app": name,
				},
			},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"app": name,
					},
				},
				Spec: m.buildPodSpec(variant, profile),
			},
		},
	}

	_, err := m.clientset.AppsV1().Deployments(m.config.Namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			_, err = m.clientset.AppsV1().Deployments(m.config.Namespace).Create(ctx, deployment, metav1.CreateOptions{})
			if err != nil {
				return fmt.Errorf("failed to create deployment: %w", err)
			}
			log.Printf("Created Deployment %s/%s", m.config.Namespace, name)
			return nil
		}
		return fmt.Errorf("failed to get deployment: %w", err)
	}

	log.Printf("Deployment %s/%s already exists", m.config.Namespace, name)
	return nil
}

// buildPodSpec builds the pod specification for a variant: an init container
// fetching the GGUF onto the model volume, then the llama-server container.
func (m *Manager) buildPodSpec(variant string, profile *models.Profile) corev1.PodSpec {
	image := m.config.Image
	gpu := variant == VariantGPU
	if gpu {
		image = m.config.GPUImage
	}

	resources := corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse("4"),
			corev1.ResourceMemory: resource.MustParse("8Gi"),
		},
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    resource.MustParse("8"),
			corev1.ResourceMemory: resource.MustParse("12Gi"),
		},
	}
	if gpu {
		gpuCount := resource.MustParse(fmt.Sprintf("%d", m.config.GPUCount))
		resources = corev1.ResourceRequirements{
			Requests: corev1.ResourceList{
				corev1.ResourceMemory:                 resource.MustParse("12Gi"),
				corev1.ResourceName("nvidia.com/gpu"): gpuCount,
			},
			Limits: corev1.ResourceList{
				corev1.ResourceMemory:                 resource.MustParse("16Gi"),
				corev1.ResourceName("nvidia.com/gpu"): gpuCount,
			},
		}
	}

	return corev1.PodSpec{
		Volumes: []corev1.Volume{
			{
				Name: "model-storage",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: m.config.PVCName,
					},
				},
			},
		},
		InitContainers: []corev1.Container{
			{
				Name:    "model-downloader",
				Image:   downloaderImage,
				Command: []string{"sh", "-c"},
				Args: []string{
					`if [ ! -f "/models/${MODEL_FILE}" ]; then curl -fSL -o "/models/${MODEL_FILE}" "${MODEL_URL}"; fi`,
				},
				EnvFrom: []corev1.EnvFromSource{
					{
						ConfigMapRef: &corev1.ConfigMapEnvSource{
							LocalObjectReference: corev1.LocalObjectReference{Name: m.config.ConfigMapName},
						},
					},
				},
				VolumeMounts: []corev1.VolumeMount{
					{
						Name:      "model-storage",
						MountPath: "/models",
					},
				},
			},
		},
		Containers: []corev1.Container{
			{
				Name:            "llama-cpp",
				Image:           image,
				ImagePullPolicy: corev1.PullIfNotPresent,
				Args:            profile.ServerArgs(gpu),
				Ports: []corev1.ContainerPort{
					{
						ContainerPort: serverPort,
						Name:          "http",
					},
				},
				Resources: resources,
				VolumeMounts: []corev1.VolumeMount{
					{
						Name:      "model-storage",
						MountPath: "/models",
						ReadOnly:  true,
					},
				},
				StartupProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						HTTPGet: &corev1.HTTPGetAction{
							Path: "/health",
							Port: intstr.FromString("http"),
						},
					},
					InitialDelaySeconds: 10,
					PeriodSeconds:       10,
					TimeoutSeconds:      5,
					FailureThreshold:    60,
				},
				ReadinessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						HTTPGet: &corev1.HTTPGetAction{
							Path: "/health",
							Port: intstr.FromString("http"),
						},
					},
					InitialDelaySeconds: 5,
					PeriodSeconds:       10,
					TimeoutSeconds:      5,
					FailureThreshold:    6,
				},
				LivenessProbe: &corev1.Probe{
					ProbeHandler: corev1.ProbeHandler{
						HTTPGet: &corev1.HTTPGetAction{
							Path: "/health",
							Port: intstr.FromString("http"),
						},
					},
					InitialDelaySeconds: 120,
					PeriodSeconds:       30,
					TimeoutSeconds:      5,
					FailureThreshold:    3,
				},
			},
		},
	}
}

// WaitForPVCBound polls the claim until it reports Bound or the timeout
// elapses. Callers treat a timeout as a warning, not a hard failure: slow
// provisioners bind on first consumer and the deployment proceeds anyway.
func (m *Manager) WaitForPVCBound(ctx context.Context, timeout time.Duration) error {
	return wait.PollUntilContextTimeout(ctx, 5*time.Second, timeout, true, func(ctx context.Context) (bool, error) {
		pvc, err := m.clientset.CoreV1().PersistentVolumeClaims(m.config.Namespace).Get(ctx, m.config.PVCName, metav1.GetOptions{})
		if err != nil {
			if errors.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}

		switch pvc.Status.Phase {
		case corev1.ClaimBound:
			log.Printf("PVC %s/%s is bound", m.config.Namespace, m.config.PVCName)
			return true, nil
		case corev1.ClaimLost:
			return false, fmt.Errorf("pvc %s/%s is lost", m.config.Namespace, m.config.PVCName)
		default:
			log.Printf("Waiting for PVC %s/%s to bind (phase: %s)", m.config.Namespace, m.config.PVCName, pvc.Status.Phase)
			return false, nil
		}
	})
}

// DetectGPUNodes counts schedulable nodes advertising nvidia.com/gpu capacity.
func (m *Manager) DetectGPUNodes(ctx context.Context) (int, error) {
	nodes, err := m.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to list nodes: %w", err)
	}

	count := 0
	for _, node := range nodes.Items {
		if node.Spec.Unschedulable {
			continue
		}
		if qty, ok := node.Status.Allocatable[corev1.ResourceName("nvidia.com/gpu")]; ok && !qty.IsZero() {
			count++
		}
	}
	return count, nil
}
