package route

import (
	"net"
	"strings"
)

// HostRules 描述一套环境的主机名解析规则。
// 三档优先级：JNS 形态 > 网络限定形态 > 根域直挂，每档有各自的保留子域名单。
type HostRules struct {
	RootDomain  string // 如 jejugrid.io
	JNSInfix    string // 如 jns：<app>.jns.<rest>
	NetworkName string // 如 mainnet：<app>.mainnet.<rest>

	reserved    map[string]struct{} // 根域直挂档的保留名
	reservedNet map[string]struct{} // 网络限定档的保留名
}

func NewHostRules(rootDomain, jnsInfix, networkName string, reserved, reservedNet []string) *HostRules {
	h := &HostRules{
		RootDomain:  rootDomain,
		JNSInfix:    jnsInfix,
		NetworkName: networkName,
		reserved:    make(map[string]struct{}, len(reserved)),
		reservedNet: make(map[string]struct{}, len(reservedNet)),
	}
	for _, n := range reserved {
		h.reserved[n] = struct{}{}
	}
	for _, n := range reservedNet {
		h.reservedNet[n] = struct{}{}
	}
	return h
}

// AppFromHost 从主机名提取应用名。返回 false 表示这不是应用请求。
func (h *HostRules) AppFromHost(host string) (string, bool) {
	if hostname, _, err := net.SplitHostPort(host); err == nil {
		host = hostname
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))

	labels := strings.Split(host, ".")
	if len(labels) < 2 || labels[0] == "" {
		return "", false
	}

	// (1) JNS 形态：<app>.jns.<rest>，首标签即应用名，无保留名单。
	if len(labels) >= 3 && labels[1] == h.JNSInfix {
		return labels[0], true
	}

	// (2) 网络限定形态：<app>.<network>.<rest>。
	if len(labels) >= 3 && labels[1] == h.NetworkName {
		if _, ok := h.reservedNet[labels[0]]; ok {
			return "", false
		}
		return labels[0], true
	}

	// (3) 根域直挂：<app>.<root-domain>。
	if rest := strings.TrimSuffix(host, "."+h.RootDomain); rest != host && !strings.Contains(rest, ".") {
		if _, ok := h.reserved[rest]; ok {
			return "", false
		}
		return rest, true
	}

	return "", false
}
