package repository

import "time"

// DeployedAppModel 是 DeployedApp 的数据库持久化模型。
type DeployedAppModel struct {
	Name            string `gorm:"primaryKey"`
	Domain          string
	FrontendCID     string
	StaticFiles     string // JSON 序列化的 map[string]string
	BackendFunction string
	BackendURL      string
	APIPaths        string // JSON 序列化的 []string
	SPA             bool
	Enabled         bool
	DeployedAt      time.Time
	UpdatedAt       time.Time
}

func (DeployedAppModel) TableName() string { return "deployed_apps" }

// FunctionModel 是 Function 的数据库持久化模型。
type FunctionModel struct {
	ID          string `gorm:"primaryKey"`
	Name        string
	Owner       string `gorm:"index"`
	CodeCID     string `gorm:"index"`
	Entrypoint  string
	MemoryMB    int
	TimeoutMS   int
	Envs        string // JSON 序列化的 map[string]string
	Status      string
	Version     int
	Invocations int64
	Errors      int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (FunctionModel) TableName() string { return "functions" }

// FunctionVersionModel 是 FunctionVersion 的数据库持久化模型，只追加。
type FunctionVersionModel struct {
	FunctionID string `gorm:"primaryKey"`
	Version    int    `gorm:"primaryKey"`
	CodeCID    string
	Entrypoint string
	MemoryMB   int
	TimeoutMS  int
	Envs       string // JSON 序列化的 map[string]string
	CreatedAt  time.Time
}

func (FunctionVersionModel) TableName() string { return "function_versions" }
