package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// appNameRegex 匹配合法的应用名：小写字母开头，只含小写字母、数字和连字符，长度 2-63。
// 应用名会成为主机名的首标签，因此遵守 DNS label 规则。
var appNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,61}[a-z0-9]$`)

// ValidateAppName 校验名称是否可安全用作主机名标签。
func ValidateAppName(name string) error {
	if !appNameRegex.MatchString(name) {
		return fmt.Errorf("%w: name %q is not a valid app name", ErrInvalidInput, name)
	}
	return nil
}

// cidRegex 匹配内容标识：CIDv0（Qm 开头 base58）或 CIDv1（b 开头 base32）。
var cidRegex = regexp.MustCompile(`^(Qm[1-9A-HJ-NP-Za-km-z]{44}|b[a-z2-7]{58,})$`)

// LooksLikeCID 判断一个标识符在语法上是否像内容标识。
// 只做形状判断，存在性由内容存储确认。
func LooksLikeCID(s string) bool {
	return cidRegex.MatchString(s)
}

// ValidateAPIPaths 校验 API 前缀列表：每项必须以 / 开头且不含 ".."。
func ValidateAPIPaths(paths []string) error {
	for _, p := range paths {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("%w: api path %q must start with /", ErrInvalidInput, p)
		}
		if strings.Contains(p, "..") {
			return fmt.Errorf("%w: api path %q must not contain '..'", ErrInvalidInput, p)
		}
	}
	return nil
}

// ValidateApp 校验注册请求的 DeployedApp：名称合法且至少有一个可服务目标。
func ValidateApp(a *DeployedApp) error {
	if err := ValidateAppName(a.Name); err != nil {
		return err
	}
	if !a.HasFrontend() && !a.HasBackend() {
		return fmt.Errorf("%w: app %q declares neither frontend nor backend", ErrInvalidInput, a.Name)
	}
	return ValidateAPIPaths(a.APIPaths)
}
