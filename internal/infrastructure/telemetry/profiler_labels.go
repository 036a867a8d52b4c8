package telemetry

import (
	"context"
	"maps"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelTenantID   = "tenant_id"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelStage      = "stage"
)

// Reconciliation operation names used as profiling labels
const (
	OperationProcessTransaction = "process_transaction"
	OperationBatchRun           = "batch_run"
	OperationCombinationSearch  = "combination_search"
	OperationGroupCascade       = "group_cascade"
	OperationReverseMatch       = "reverse_match"
	OperationResolveAccount     = "resolve_account"
)

// MaxLabelValueLength caps label values to keep Pyroscope cardinality sane
const MaxLabelValueLength = 128

// highCardinalityLabels are keys sanitizeLabels always drops
var highCardinalityLabels = map[string]bool{
	"request_id": true,
	"trace_id":   true,
	"span_id":    true,
}

// WithProfilingLabels wraps fn with Pyroscope labels so profiles can be
// sliced by operation in the UI. The labels map is copied, so callers may
// reuse it afterwards.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	if len(labels) == 0 {
		fn(ctx)
		return
	}

	labelsCopy := make(map[string]string, len(labels))
	maps.Copy(labelsCopy, labels)

	labelPairs := sanitizeLabels(labelsCopy)
	if len(labelPairs) == 0 {
		fn(ctx)
		return
	}

	pyroscope.TagWrapper(ctx, pyroscope.Labels(labelPairs...), fn)
}

// ReconciliationOperationLabels builds the label set for one engine operation
func ReconciliationOperationLabels(operation, stage string) map[string]string {
	labels := map[string]string{ProfilingLabelOperation: operation}
	if stage != "" {
		labels[ProfilingLabelStage] = stage
	}
	return labels
}

func sanitizeLabels(labels map[string]string) []string {
	pairs := make([]string, 0, len(labels)*2)
	for k, v := range labels {
		if k == "" || v == "" || highCardinalityLabels[k] {
			continue
		}
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
