package publishers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starnight-hq/starnight-client/internal/domain"
	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeHTTP   = "http"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

var knownKinds = map[string]bool{
	string(domain.EventSessionRenewed):       true,
	string(domain.EventSessionRenewalFailed): true,
	string(domain.EventMaintenanceEntered):   true,
}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in the publishers file.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`

	// Kinds limits the event kinds delivered to this publisher; empty means all.
	Kinds []string `json:"kinds" yaml:"kinds"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// PubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPPublisherConfig holds webhook settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	// RetryCount retries transport errors and 5xx responses.
	RetryCount int `json:"retry_count" yaml:"retry_count"`
}

// ConfigRegistry holds the publisher definitions of one publishers file.
// It is read-only once loaded.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file. ${VAR} references are
// expanded from the environment before decoding so secrets such as webhook
// tokens can stay out of the file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file configFile
	if err := decodePublishersFile([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path), &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(file.Publishers)),
		idx:        make(map[string]int, len(file.Publishers)),
	}
	for i, entry := range file.Publishers {
		cfg := sanitizePublisherConfig(entry)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.idx[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.idx[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// decodePublishersFile picks the decoder by extension. Anything that is not
// .json goes through yaml, which also accepts JSON documents.
func decodePublishersFile(data []byte, ext string, out *configFile) error {
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("decode json publishers: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode yaml publishers: %w", err)
		}
	}
	return nil
}

func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}

	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		if c.Method = strings.ToUpper(strings.TrimSpace(c.Method)); c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		if c.RetryCount < 0 {
			c.RetryCount = 0
		}
		cfg.HTTP = &c
	}

	if len(cfg.Kinds) > 0 {
		kinds := make([]string, 0, len(cfg.Kinds))
		for _, k := range cfg.Kinds {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kinds = append(kinds, k)
			}
		}
		cfg.Kinds = kinds
	}
	return cfg
}

func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if k, v = strings.TrimSpace(k), strings.TrimSpace(v); k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validatePublisherConfig checks that the block matching Type is present and complete.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	for _, k := range cfg.Kinds {
		if !knownKinds[k] {
			return fmt.Errorf("publisher %q subscribes to unknown event kind %q", cfg.ID, k)
		}
	}

	var missing []string
	require := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}

	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		require("sqs.uri", cfg.SQS.QueueURL)
		require("sqs.region", cfg.SQS.Region)
	case TypeSNS:
		if cfg.SNS == nil {
			return fmt.Errorf("sns config required for publisher %q", cfg.ID)
		}
		require("sns.topic_arn", cfg.SNS.TopicARN)
		require("sns.region", cfg.SNS.Region)
	case TypePubSub:
		if cfg.PubSub == nil {
			return fmt.Errorf("pubsub config required for publisher %q", cfg.ID)
		}
		require("pubsub.project_id", cfg.PubSub.ProjectID)
		require("pubsub.topic", cfg.PubSub.Topic)
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		require("http.url", cfg.HTTP.URL)
	}

	if len(missing) > 0 {
		return fmt.Errorf("publisher %q is missing %s", cfg.ID, strings.Join(missing, ", "))
	}
	return nil
}

// ByID returns the publisher config with the given id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.idx[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns every configured publisher in file order.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the publishers not switched off with enabled: false.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.publishers {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// Accepts reports whether the publisher wants events of the given kind.
func (cfg PublisherConfig) Accepts(kind string) bool {
	if len(cfg.Kinds) == 0 {
		return true
	}
	kind = strings.ToLower(kind)
	for _, k := range cfg.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}
