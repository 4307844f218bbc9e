package route

import "testing"

func TestIsAPIPath(t *testing.T) {
	apiPaths := []string{"/api", "/v2/rpc"}

	cases := []struct {
		path string
		want bool
	}{
		{"/api", true},
		{"/api/users", true},
		{"/apix", false},
		{"/apix/users", false},
		{"/v2/rpc", true},
		{"/v2/rpc/call", true},
		{"/v2/rpcx", false},
		{"/", false},
		{"/index.html", false},
	}
	for _, c := range cases {
		if got := IsAPIPath(c.path, apiPaths); got != c.want {
			t.Errorf("IsAPIPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestIsAssetPath(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"assets/app.js", true},
		{"style.css", true},
		{"logo.PNG", true},
		{"fonts/inter.woff2", true},
		{"dashboard", false},
		{"users/42", false},
		{"archive.unknownext", false},
	}
	for _, c := range cases {
		if got := IsAssetPath(c.path); got != c.want {
			t.Errorf("IsAssetPath(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	if got := NormalizePath("/", false); got != RootDocument {
		t.Errorf("NormalizePath(/) = %q, want %q", got, RootDocument)
	}
	if got := NormalizePath("/assets/app.js", true); got != "assets/app.js" {
		t.Errorf("NormalizePath asset = %q, want assets/app.js", got)
	}
	// SPA 的非资源路径改写为根文档
	if got := NormalizePath("/dashboard", true); got != RootDocument {
		t.Errorf("NormalizePath spa = %q, want %q", got, RootDocument)
	}
	// 非 SPA 保留原路径
	if got := NormalizePath("/dashboard", false); got != "dashboard" {
		t.Errorf("NormalizePath non-spa = %q, want dashboard", got)
	}
}

func TestResolveStatic(t *testing.T) {
	files := map[string]string{
		"index.html":     "cidA",
		"/with-slash.js": "cidB",
		"app.css":        "cidC",
		"dist/nested.js": "cidD",
		"plain.txt":      "cidE",
	}

	cases := []struct {
		path string
		want string
	}{
		{"index.html", "cidA"},            // 原样
		{"with-slash.js", "cidB"},         // 补回前导斜杠
		{"public/app.css", "cidC"},        // 剥掉构建前缀
		{"nested.js", "cidD"},             // 补上输出前缀
		{"dist/plain.txt", "cidE"},        // 剥掉输出前缀
	}
	for _, c := range cases {
		got, ok := ResolveStatic(files, c.path)
		if !ok || got != c.want {
			t.Errorf("ResolveStatic(%q) = %q, %v; want %q", c.path, got, ok, c.want)
		}
	}

	if _, ok := ResolveStatic(files, "missing.js"); ok {
		t.Error("ResolveStatic should miss for unknown path")
	}
	if _, ok := ResolveStatic(nil, "index.html"); ok {
		t.Error("ResolveStatic should miss for empty map")
	}
}
