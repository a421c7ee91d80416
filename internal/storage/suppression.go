package storage

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/finsecops/spendguard/internal/domain/alerting"
	"github.com/finsecops/spendguard/internal/pkg/logger"
	"github.com/finsecops/spendguard/internal/pkg/timeutil"
)

// suppressionDocument is the wire shape of the suppression source.
type suppressionDocument struct {
	Suppress []suppressionEntry `json:"suppress"`
}

type suppressionEntry struct {
	AccountID string `json:"account_id"`
	Region    string `json:"region"`
	Service   string `json:"service"`
	Pattern   string `json:"pattern"`
	Reason    string `json:"reason"`
	Until     string `json:"until"`
}

// LoadSuppressionRules loads suppression rules from an s3:// URI or a local
// file path. Any failure degrades to an empty rule set with a warning; a
// missing or unreadable suppression source never fails the run.
func LoadSuppressionRules(ctx context.Context, store *S3Store, uri string, log *logger.Logger) []alerting.SuppressionRule {
	if uri == "" {
		return nil
	}

	if strings.HasPrefix(uri, "s3://") {
		if store == nil {
			log.With("uri", uri).Warn("No S3 store configured for suppression source")
			return nil
		}
		bucket, key, err := ParseS3URI(uri)
		if err != nil {
			log.With("uri", uri).Warn("Invalid suppression source URI")
			return nil
		}
		var doc suppressionDocument
		if err := store.GetJSON(ctx, bucket, key, &doc); err != nil {
			log.WithFields(map[string]interface{}{"uri": uri, "error": err.Error()}).
				Warn("Failed to load suppression configuration")
			return nil
		}
		return convertSuppressionEntries(doc.Suppress, log)
	}

	raw, err := os.ReadFile(uri)
	if err != nil {
		log.WithFields(map[string]interface{}{"path": uri, "error": err.Error()}).
			Warn("Failed to read suppression file")
		return nil
	}
	var doc suppressionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		log.WithFields(map[string]interface{}{"path": uri, "error": err.Error()}).
			Warn("Suppression file is not valid JSON")
		return nil
	}
	return convertSuppressionEntries(doc.Suppress, log)
}

func convertSuppressionEntries(entries []suppressionEntry, log *logger.Logger) []alerting.SuppressionRule {
	rules := make([]alerting.SuppressionRule, 0, len(entries))
	for _, entry := range entries {
		rule := alerting.SuppressionRule{
			AccountID: entry.AccountID,
			Region:    entry.Region,
			Service:   entry.Service,
			Pattern:   entry.Pattern,
			Reason:    entry.Reason,
		}
		if entry.Until != "" {
			until, err := timeutil.ParseTimestamp(entry.Until)
			if err != nil {
				log.With("until", entry.Until).Warn("Invalid until format in suppression entry")
			} else {
				rule.Until = &until
			}
		}
		rules = append(rules, rule)
	}
	return rules
}
