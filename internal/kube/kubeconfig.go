// Package kube talks to the workload cluster: kubeconfig rendering,
// manifest application, readiness probes, and Helm releases.
package kube

import (
	"fmt"

	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"

	"github.com/ideas-api/stackctl/internal/platform/aws"
)

// Kubeconfig renders an in-memory kubeconfig for the given cluster. Tokens
// come from the aws CLI exec credential plugin, so nothing credential-shaped
// is ever written to disk.
func Kubeconfig(info *aws.ClusterInfo, region string) ([]byte, error) {
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters[info.Name] = &clientcmdapi.Cluster{
		Server:                   info.Endpoint,
		CertificateAuthorityData: info.CAData,
	}
	cfg.AuthInfos[info.Name] = &clientcmdapi.AuthInfo{
		Exec: &clientcmdapi.ExecConfig{
			APIVersion:      "client.authentication.k8s.io/v1beta1",
			Command:         "aws",
			Args:            []string{"eks", "get-token", "--cluster-name", info.Name, "--region", region},
			InteractiveMode: clientcmdapi.NeverExecInteractiveMode,
		},
	}
	cfg.Contexts[info.Name] = &clientcmdapi.Context{
		Cluster:  info.Name,
		AuthInfo: info.Name,
	}
	cfg.CurrentContext = info.Name

	data, err := clientcmd.Write(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize kubeconfig: %w", err)
	}
	return data, nil
}
