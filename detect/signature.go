package detect

import (
	"fmt"
	"os"
	"time"

	"argus/core"
	"argus/metrics"

	"github.com/dlclark/regexp2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// signatureMatchTimeout caps a single pattern match to protect the
// pipeline against catastrophic backtracking in catalog patterns.
const signatureMatchTimeout = 100 * time.Millisecond

// SignatureRule is a named text pattern associated with a threat category
// and severity. Rules are immutable once loaded.
type SignatureRule struct {
	Category string `yaml:"-" json:"category"`
	Name     string `yaml:"name" json:"name"`
	Pattern  string `yaml:"pattern" json:"pattern"`
	Severity string `yaml:"severity" json:"severity"`
}

// SignatureMatch is one signature hit against an event's content.
type SignatureMatch struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Severity string `json:"severity"`
	Pattern  string `json:"pattern"`
}

type compiledSignature struct {
	rule SignatureRule
	re   *regexp2.Regexp
}

// SignatureCatalog holds the loaded signatures in category load order.
// The catalog may be extended at startup from a YAML definitions file;
// there is no runtime mutation after load.
type SignatureCatalog struct {
	signatures []compiledSignature
	logger     *zap.SugaredLogger
}

// NewSignatureCatalog creates a catalog preloaded with the built-in
// signatures.
func NewSignatureCatalog(logger *zap.SugaredLogger) *SignatureCatalog {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &SignatureCatalog{logger: logger}
	for _, sig := range defaultSignatures() {
		if err := c.add(sig); err != nil {
			// Built-in patterns are fixed; a compile failure here is a bug.
			logger.Errorf("Failed to compile built-in signature %s: %v", sig.Name, err)
		}
	}
	return c
}

func (c *SignatureCatalog) add(sig SignatureRule) error {
	re, err := regexp2.Compile(sig.Pattern, regexp2.IgnoreCase)
	if err != nil {
		return fmt.Errorf("failed to compile signature pattern %q: %w", sig.Pattern, err)
	}
	re.MatchTimeout = signatureMatchTimeout
	c.signatures = append(c.signatures, compiledSignature{rule: sig, re: re})
	return nil
}

// LoadCustomFile extends the catalog from a YAML definitions file mapping
// category to signature definitions. The caller treats a load failure as
// non-fatal: the default catalog stays intact.
func (c *SignatureCatalog) LoadCustomFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read signature definitions: %w", err)
	}

	var defs map[string][]SignatureRule
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("failed to parse signature definitions: %w", err)
	}

	loaded := 0
	for category, sigs := range defs {
		for _, sig := range sigs {
			sig.Category = category
			if err := c.add(sig); err != nil {
				c.logger.Warnf("Skipping custom signature %s: %v", sig.Name, err)
				continue
			}
			loaded++
		}
	}
	c.logger.Infof("Loaded %d custom signatures from %s", loaded, path)
	return nil
}

// Len returns the number of loaded signatures.
func (c *SignatureCatalog) Len() int {
	return len(c.signatures)
}

// Match reports every signature whose pattern matches content. Matching
// is case-insensitive and does not short-circuit: an event may match
// multiple signatures. Empty content yields no matches.
func (c *SignatureCatalog) Match(content string) []SignatureMatch {
	if content == "" {
		return nil
	}

	var matches []SignatureMatch
	for _, sig := range c.signatures {
		ok, err := sig.re.MatchString(content)
		if err != nil {
			// regexp2 returns an error only on match timeout.
			metrics.SignatureMatchTimeouts.Inc()
			c.logger.Warnf("Signature %s match timed out", sig.rule.Name)
			continue
		}
		if ok {
			matches = append(matches, SignatureMatch{
				Category: sig.rule.Category,
				Name:     sig.rule.Name,
				Severity: sig.rule.Severity,
				Pattern:  sig.rule.Pattern,
			})
		}
	}
	return matches
}

// SignatureAnalyzer wraps the catalog behind the Analyzer interface,
// emitting one signature alert per match.
type SignatureAnalyzer struct {
	catalog *SignatureCatalog
}

// NewSignatureAnalyzer creates a SignatureAnalyzer over catalog.
func NewSignatureAnalyzer(catalog *SignatureCatalog) *SignatureAnalyzer {
	return &SignatureAnalyzer{catalog: catalog}
}

// Name implements Analyzer.
func (a *SignatureAnalyzer) Name() string { return "signature" }

// Evaluate implements Analyzer.
func (a *SignatureAnalyzer) Evaluate(event *core.Event) ([]*core.Alert, error) {
	var alerts []*core.Alert
	for _, m := range a.catalog.Match(event.Content) {
		alert := core.NewAlert(core.AlertTypeSignature, m.Name, m.Severity, event.Source,
			fmt.Sprintf("Signature %s (%s) matched", m.Name, m.Category))
		alert.EventIDs = []string{event.EventID}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}

// defaultSignatures returns the built-in signature catalog.
func defaultSignatures() []SignatureRule {
	return []SignatureRule{
		{Category: "malware", Name: "Generic Backdoor",
			Pattern:  `(backdoor|reverse shell|reverse_shell|bind shell|bind_shell)`,
			Severity: core.SeverityCritical},
		{Category: "malware", Name: "Command Injection",
			Pattern:  `;.*(\||>|<|\$\(|` + "`" + `)`,
			Severity: core.SeverityCritical},
		{Category: "malware", Name: "SQL Injection",
			Pattern:  `('|--|\#|/\*|\*/|;|union\s+select|select.*from)`,
			Severity: core.SeverityCritical},
		{Category: "privilege_escalation", Name: "Sudo Abuse",
			Pattern:  `(sudo\s+-i|sudo\s+su|sudo.*-s\s+/bin/bash)`,
			Severity: core.SeverityHigh},
		{Category: "privilege_escalation", Name: "SUID Exploitation",
			Pattern:  `(chmod.*\+s|chmod.*u\+s|chmod.*4755)`,
			Severity: core.SeverityHigh},
		{Category: "data_exfiltration", Name: "Suspicious Data Transfer",
			Pattern:  `(base64.*curl|wget.*pastebin|nc.*-e|netcat.*-e)`,
			Severity: core.SeverityHigh},
		{Category: "data_exfiltration", Name: "Suspicious File Access",
			Pattern:  `(cat.*/etc/shadow|cat.*/etc/passwd|access.*\.ssh)`,
			Severity: core.SeverityHigh},
		{Category: "reconnaissance", Name: "Network Scanning",
			Pattern:  `(nmap|port scan|nikto|dirb|gobuster)`,
			Severity: core.SeverityMedium},
		{Category: "reconnaissance", Name: "System Enumeration",
			Pattern:  `(whoami|id\s|uname\s+-a|cat.*/proc)`,
			Severity: core.SeverityMedium},
	}
}
