package kube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/util/yaml"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/ideas-api/stackctl/internal/resource"
)

// fieldManager identifies this tool in server-side apply field ownership.
const fieldManager = "stackctl"

// Client wraps Kubernetes API operations for workload management.
type Client struct {
	clientset kubernetes.Interface
	dynamic   dynamic.Interface
}

// NewClient creates a Kubernetes client from kubeconfig bytes.
func NewClient(kubeconfigData []byte) (*Client, error) {
	config, err := clientcmd.RESTConfigFromKubeConfig(kubeconfigData)
	if err != nil {
		return nil, fmt.Errorf("failed to build kubeconfig from bytes: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dynamicClient, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return &Client{
		clientset: clientset,
		dynamic:   dynamicClient,
	}, nil
}

// Clientset exposes the typed client for callers that only read state.
func (c *Client) Clientset() kubernetes.Interface {
	return c.clientset
}

// ObjectRef identifies an applied or deleted object.
type ObjectRef struct {
	Kind      string
	Namespace string
	Name      string
}

func (r ObjectRef) String() string {
	if r.Namespace == "" {
		return fmt.Sprintf("%s/%s", r.Kind, r.Name)
	}
	return fmt.Sprintf("%s/%s/%s", r.Kind, r.Namespace, r.Name)
}

// Apply applies a YAML manifest (possibly multi-document) using server-side
// apply, so re-applying an unchanged manifest is a no-op.
func (c *Client) Apply(ctx context.Context, manifest []byte) ([]ObjectRef, error) {
	objs, err := decodeDocs(manifest)
	if err != nil {
		return nil, err
	}

	var applied []ObjectRef
	for i := range objs {
		obj := &objs[i]
		rsc, err := c.resourceFor(obj)
		if err != nil {
			return applied, err
		}

		_, err = rsc.Apply(ctx, obj.GetName(), obj, metav1.ApplyOptions{
			FieldManager: fieldManager,
			Force:        true,
		})
		if err != nil {
			return applied, fmt.Errorf("failed to apply %s/%s: %w", obj.GetKind(), obj.GetName(), err)
		}
		applied = append(applied, refOf(obj))
	}
	return applied, nil
}

// Delete removes every object in the manifest. Objects that are already gone
// do not count as failures.
func (c *Client) Delete(ctx context.Context, manifest []byte) ([]ObjectRef, error) {
	objs, err := decodeDocs(manifest)
	if err != nil {
		return nil, err
	}

	var deleted []ObjectRef
	for i := range objs {
		obj := &objs[i]
		rsc, err := c.resourceFor(obj)
		if err != nil {
			return deleted, err
		}

		err = rsc.Delete(ctx, obj.GetName(), metav1.DeleteOptions{})
		if apierrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s/%s: %w", obj.GetKind(), obj.GetName(), err)
		}
		deleted = append(deleted, refOf(obj))
	}
	return deleted, nil
}

// DeploymentReady reports whether the deployment's replicas are all updated
// and available. A missing deployment is simply not ready yet.
func (c *Client) DeploymentReady(ctx context.Context, namespace, name string) (bool, error) {
	deployment, err := c.clientset.AppsV1().Deployments(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return isDeploymentReady(deployment), nil
}

// IngressAddress returns the external hostname or IP the ingress controller
// published for the ingress, or "" while none is assigned yet.
func (c *Client) IngressAddress(ctx context.Context, namespace, name string) (string, error) {
	ingress, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if apierrors.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	for _, lb := range ingress.Status.LoadBalancer.Ingress {
		if lb.Hostname != "" {
			return lb.Hostname, nil
		}
		if lb.IP != "" {
			return lb.IP, nil
		}
	}
	return "", nil
}

// IngressExists probes for the named ingress.
func (c *Client) IngressExists(ctx context.Context, namespace, name string) (resource.Existence, error) {
	_, err := c.clientset.NetworkingV1().Ingresses(namespace).Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return resource.Present, nil
	}
	if apierrors.IsNotFound(err) {
		return resource.Absent, nil
	}
	return resource.Unknown, err
}

// DeleteIngress removes the named ingress. Already gone is success.
func (c *Client) DeleteIngress(ctx context.Context, namespace, name string) error {
	err := c.clientset.NetworkingV1().Ingresses(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if err != nil && !apierrors.IsNotFound(err) {
		return fmt.Errorf("failed to delete ingress %s/%s: %w", namespace, name, err)
	}
	return nil
}

// NamespaceExists probes for the named namespace.
func (c *Client) NamespaceExists(ctx context.Context, name string) (resource.Existence, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, name, metav1.GetOptions{})
	if err == nil {
		return resource.Present, nil
	}
	if apierrors.IsNotFound(err) {
		return resource.Absent, nil
	}
	return resource.Unknown, err
}

func (c *Client) resourceFor(obj *unstructured.Unstructured) (dynamic.ResourceInterface, error) {
	gvk := obj.GroupVersionKind()
	if gvk.Kind == "" || obj.GetName() == "" {
		return nil, fmt.Errorf("manifest object is missing kind or metadata.name")
	}

	gvr := schema.GroupVersionResource{
		Group:    gvk.Group,
		Version:  gvk.Version,
		Resource: resourceForKind(gvk.Kind),
	}

	if clusterScoped(gvk.Kind) {
		return c.dynamic.Resource(gvr), nil
	}

	namespace := obj.GetNamespace()
	if namespace == "" {
		namespace = "default"
	}
	return c.dynamic.Resource(gvr).Namespace(namespace), nil
}

func refOf(obj *unstructured.Unstructured) ObjectRef {
	return ObjectRef{
		Kind:      obj.GetKind(),
		Namespace: obj.GetNamespace(),
		Name:      obj.GetName(),
	}
}

// decodeDocs parses a multi-document YAML manifest into unstructured objects,
// skipping empty documents.
func decodeDocs(manifest []byte) ([]unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(manifest), 4096)

	var objs []unstructured.Unstructured
	for {
		var obj unstructured.Unstructured
		err := decoder.Decode(&obj)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
		if len(obj.Object) == 0 {
			continue
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// isDeploymentReady checks if a deployment is ready.
func isDeploymentReady(deployment *appsv1.Deployment) bool {
	if deployment.Spec.Replicas == nil {
		return false
	}
	if deployment.Status.UpdatedReplicas != *deployment.Spec.Replicas {
		return false
	}
	if deployment.Status.AvailableReplicas != *deployment.Spec.Replicas {
		return false
	}

	for _, condition := range deployment.Status.Conditions {
		if condition.Type == appsv1.DeploymentAvailable &&
			condition.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

// resourceForKind maps a Kubernetes kind to its resource name. Covers the
// kinds that appear in workload and controller manifests.
func resourceForKind(kind string) string {
	switch kind {
	case "Deployment":
		return "deployments"
	case "Service":
		return "services"
	case "ConfigMap":
		return "configmaps"
	case "Secret":
		return "secrets"
	case "ServiceAccount":
		return "serviceaccounts"
	case "Namespace":
		return "namespaces"
	case "Ingress":
		return "ingresses"
	case "IngressClass":
		return "ingressclasses"
	case "HorizontalPodAutoscaler":
		return "horizontalpodautoscalers"
	case "Role":
		return "roles"
	case "RoleBinding":
		return "rolebindings"
	case "ClusterRole":
		return "clusterroles"
	case "ClusterRoleBinding":
		return "clusterrolebindings"
	case "NetworkPolicy":
		return "networkpolicies"
	case "PodDisruptionBudget":
		return "poddisruptionbudgets"
	default:
		return strings.ToLower(kind) + "s"
	}
}

func clusterScoped(kind string) bool {
	switch kind {
	case "Namespace", "ClusterRole", "ClusterRoleBinding", "IngressClass",
		"StorageClass", "PersistentVolume", "CustomResourceDefinition":
		return true
	}
	return false
}
