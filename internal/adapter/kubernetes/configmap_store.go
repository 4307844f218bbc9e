package kubernetes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jeju-platform/edge-engine/internal/domain"
	"github.com/jeju-platform/edge-engine/internal/port"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// dataKey 是 ConfigMap 中存放应用列表 JSON 文档的固定键。
const dataKey = "apps.json"

var _ port.RegistryStore = (*ConfigMapStore)(nil)

// ConfigMapStore 把全量应用列表作为单个 JSON 文档存进一个 ConfigMap，
// 整文档原子替换；ConfigMap 不存在时透明地创建。
type ConfigMapStore struct {
	client    kubernetes.Interface
	namespace string
	name      string
}

func NewConfigMapStore(client kubernetes.Interface, namespace, name string) *ConfigMapStore {
	return &ConfigMapStore{client: client, namespace: namespace, name: name}
}

func (s *ConfigMapStore) Name() string { return "configmap" }

func (s *ConfigMapStore) Load(ctx context.Context) ([]*domain.DeployedApp, error) {
	cm, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if apierrors.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("configmap store: get: %w", err)
	}

	raw, ok := cm.Data[dataKey]
	if !ok || raw == "" {
		return nil, nil
	}

	var apps []*domain.DeployedApp
	if err := json.Unmarshal([]byte(raw), &apps); err != nil {
		return nil, fmt.Errorf("configmap store: decode %s: %w", dataKey, err)
	}
	for _, a := range apps {
		a.Normalize()
	}
	return apps, nil
}

func (s *ConfigMapStore) SaveAll(ctx context.Context, apps []*domain.DeployedApp) error {
	raw, err := json.Marshal(apps)
	if err != nil {
		return fmt.Errorf("configmap store: encode: %w", err)
	}

	cms := s.client.CoreV1().ConfigMaps(s.namespace)
	cm, err := cms.Get(ctx, s.name, metav1.GetOptions{})
	if err != nil {
		if !apierrors.IsNotFound(err) {
			return fmt.Errorf("configmap store: get: %w", err)
		}
		_, err = cms.Create(ctx, &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: s.name, Namespace: s.namespace},
			Data:       map[string]string{dataKey: string(raw)},
		}, metav1.CreateOptions{})
		if err != nil {
			return fmt.Errorf("configmap store: create: %w", err)
		}
		return nil
	}

	if cm.Data == nil {
		cm.Data = make(map[string]string, 1)
	}
	cm.Data[dataKey] = string(raw)
	if _, err := cms.Update(ctx, cm, metav1.UpdateOptions{}); err != nil {
		return fmt.Errorf("configmap store: update: %w", err)
	}
	return nil
}

// Remove 是空操作：删除通过随后的 SaveAll 整文档替换落地。
func (s *ConfigMapStore) Remove(ctx context.Context, name string) error {
	return nil
}

func (s *ConfigMapStore) Available(ctx context.Context) bool {
	_, err := s.client.CoreV1().ConfigMaps(s.namespace).Get(ctx, s.name, metav1.GetOptions{})
	return err == nil || apierrors.IsNotFound(err)
}
