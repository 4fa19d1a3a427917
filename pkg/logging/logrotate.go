package logging

import "fmt"

// GenerateLogrotateConfig creates a logrotate configuration for a component
func GenerateLogrotateConfig(baseDir, component string) string {
	if baseDir == "" {
		baseDir = DefaultLogDir
	}
	return fmt.Sprintf(`# Logrotate configuration for modelguard %s
# Install: sudo cp this file to /etc/logrotate.d/modelguard-%s

%s/%s/*.log {
    weekly
    rotate 8
    compress
    delaycompress
    missingok
    notifempty
    create 0644 root root
    copytruncate
}
`, component, component, baseDir, component)
}
