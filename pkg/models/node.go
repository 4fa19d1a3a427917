package models

// NodeType represents the class of host a model runs on
type NodeType string

const (
	NodeTypeServer  NodeType = "server"
	NodeTypeDesktop NodeType = "desktop"
	NodeTypeLaptop  NodeType = "laptop"
)

// NodeCapabilities represents the hardware available to model engines
type NodeCapabilities struct {
	CPUThreads        int    `json:"cpu_threads" yaml:"cpu_threads"`
	CPUModel          string `json:"cpu_model" yaml:"cpu_model"`
	RAMTotalBytes     uint64 `json:"ram_total_bytes" yaml:"ram_total_bytes"`
	RAMAvailableBytes uint64 `json:"ram_available_bytes" yaml:"ram_available_bytes"`
	OS                string `json:"os" yaml:"os"`
	Architecture      string `json:"architecture" yaml:"architecture"`
}
