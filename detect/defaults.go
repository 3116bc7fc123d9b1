package detect

import "vigil/core"

// DefaultRules returns the stock detection catalog used when no rule file is
// configured. Patterns assume the standard syslog-style source formats of the
// five default sources.
func DefaultRules() []*core.Rule {
	return []*core.Rule{
		{
			Name:          "Brute Force Attack",
			Source:        "auth_log",
			Pattern:       `Failed password for .+ from (\d+\.\d+\.\d+\.\d+)`,
			Threshold:     5,
			WindowSeconds: 120,
			Severity:      core.SeverityHigh,
			Tactic:        "Credential Access",
			Technique:     "Brute Force",
		},
		{
			Name:          "Port Scan Detection",
			Source:        "firewall_log",
			Pattern:       `BLOCKED.+SRC=(\d+\.\d+\.\d+\.\d+)`,
			Threshold:     10,
			WindowSeconds: 60,
			Severity:      core.SeverityMedium,
			Tactic:        "Discovery",
			Technique:     "Network Service Scanning",
		},
		{
			Name:          "Web Attack",
			Source:        "web_log",
			Pattern:       `GET .+(?:'|<script>|alert\(|\.\./\.\./).+HTTP.+(\d+\.\d+\.\d+\.\d+)`,
			Threshold:     2,
			WindowSeconds: 60,
			Severity:      core.SeverityHigh,
			Tactic:        "Initial Access",
			Technique:     "Exploit Public-Facing Application",
		},
		{
			Name:          "IDS Alert",
			Source:        "ids_log",
			Pattern:       `\[\*\*\].+\[\*\*\].+\{TCP\} (\d+\.\d+\.\d+\.\d+)`,
			Threshold:     1,
			WindowSeconds: 300,
			Severity:      core.SeverityHigh,
			Tactic:        "Multiple",
			Technique:     "Multiple",
		},
		{
			Name:          "Suspicious Process",
			Source:        "windows_log",
			Pattern:       `EventID 4688.+Process: (powershell\.exe|cmd\.exe|certutil\.exe|regsvr32\.exe).+CommandLine: .+(-enc|urlcache|-f|http:)`,
			Threshold:     1,
			WindowSeconds: 300,
			Severity:      core.SeverityHigh,
			Tactic:        "Execution",
			Technique:     "Command and Scripting Interpreter",
		},
		{
			Name:          "Data Exfiltration",
			Source:        "firewall_log",
			Pattern:       `ACCEPT.+SRC=(\d+\.\d+\.\d+\.\d+).+SIZE=(\d+)`,
			Threshold:     1,
			WindowSeconds: 300,
			Severity:      core.SeverityCritical,
			Tactic:        "Exfiltration",
			Technique:     "Exfiltration Over C2 Channel",
			Predicate:     "transfer_over_1mb",
		},
	}
}
