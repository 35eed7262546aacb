// Package config defines the packaging layout: product naming, the platform
// table, the ordered list of items copied into the archive and the ignore
// patterns. The default layout is a YAML document compiled into the binary.
package config
