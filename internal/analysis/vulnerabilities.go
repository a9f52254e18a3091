package analysis

import (
	"path"
	"strings"
)

// Severity ranks a Finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FileChange is one file of a pull request diff.
type FileChange struct {
	Filename string
	Patch    string // unified diff hunk; empty for binary or very large files
}

// Finding is a suspicious pattern in a changed file.
type Finding struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	File        string   `json:"file"`
}

// Only source files are scanned; docs and config mention passwords and SQL
// far too often to be worth flagging.
var scannedExtensions = map[string]bool{
	".py":   true,
	".js":   true,
	".ts":   true,
	".java": true,
	".cpp":  true,
	".c":    true,
}

var sqlVerbs = []string{"select", "insert", "update", "delete"}

// ScanFiles flags hardcoded credentials, raw SQL and dynamic code execution
// in the patches of changed source files. A file can yield several findings.
// The result is never nil.
func ScanFiles(files []FileChange) []Finding {
	findings := []Finding{}
	for _, f := range files {
		if !scannedExtensions[strings.ToLower(path.Ext(f.Filename))] {
			continue
		}
		patch := strings.ToLower(f.Patch)

		if strings.Contains(patch, "password") && strings.Contains(patch, "=") {
			findings = append(findings, Finding{
				Title:       "Potential Hardcoded Password",
				Description: "Password or credential found in code changes",
				Severity:    SeverityHigh,
				File:        f.Filename,
			})
		}
		if strings.Contains(patch, "sql") && containsAny(patch, sqlVerbs) {
			findings = append(findings, Finding{
				Title:       "Potential SQL Injection",
				Description: "SQL query found - ensure proper parameterization",
				Severity:    SeverityMedium,
				File:        f.Filename,
			})
		}
		if strings.Contains(patch, "eval(") || strings.Contains(patch, "exec(") {
			findings = append(findings, Finding{
				Title:       "Code Injection Risk",
				Description: "Use of eval() or exec() can be dangerous",
				Severity:    SeverityCritical,
				File:        f.Filename,
			})
		}
	}
	return findings
}
