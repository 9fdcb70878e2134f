package db

import "strings"

// operation returns the leading SQL verb in lower case, used as a metric label.
func operation(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	switch verb := strings.ToLower(fields[0]); verb {
	case "select", "insert", "update", "delete", "with", "create":
		return verb
	default:
		return "other"
	}
}
