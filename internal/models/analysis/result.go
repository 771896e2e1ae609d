package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ExecutionState 为 AI 服务的执行状态。
type ExecutionState string

// AI 执行状态
const (
	ExecutionPending   ExecutionState = "pending"
	ExecutionRunning   ExecutionState = "running"
	ExecutionCompleted ExecutionState = "completed"
	ExecutionFailed    ExecutionState = "failed"
)

// Snapshot 为 GET /status/{id} 的响应。
type Snapshot struct {
	ExecutionID        string          `json:"execution_id"`
	Status             string          `json:"status"`
	AnalysisStatus     string          `json:"analysis_status"`
	ProgressPercentage *int32          `json:"progress_percentage"`
	StatusMessage      string          `json:"status_message"`
	Result             json.RawMessage `json:"result"`
}

// State 归一化状态值，未知值按 running 处理。
func (s *Snapshot) State() ExecutionState {
	if s == nil {
		return ExecutionRunning
	}
	switch ExecutionState(strings.ToLower(strings.TrimSpace(s.Status))) {
	case ExecutionCompleted:
		return ExecutionCompleted
	case ExecutionFailed:
		return ExecutionFailed
	case ExecutionPending:
		return ExecutionPending
	default:
		return ExecutionRunning
	}
}

// HasResult 判断是否携带非空结果。
func (s *Snapshot) HasResult() bool {
	if s == nil {
		return false
	}
	trimmed := strings.TrimSpace(string(s.Result))
	return trimmed != "" && trimmed != "null"
}

// ErrMalformedResult 表示结果文档无法解析为预期结构。
var ErrMalformedResult = errors.New("analysis: malformed result document")

// Result 为 AI 分析结果的类型化视图。
type Result struct {
	SchemaVersion    string            `json:"schema_version,omitempty"`
	Scores           *Scores           `json:"scores,omitempty"`
	SummaryDiagnosis *SummaryDiagnosis `json:"summary_diagnosis,omitempty"`
	StyleAnalysis    *StyleAnalysis    `json:"style_analysis,omitempty"`
	CoachingAndPlan  *CoachingAndPlan  `json:"coaching_and_plan,omitempty"`
	GrowthReport     *GrowthReport     `json:"growth_report,omitempty"`
}

// Scores 为整体得分。
type Scores struct {
	PIScore  *float64 `json:"pi_score"`
	NDIScore *float64 `json:"ndi_score"`
}

// SummaryDiagnosis 为关系阶段诊断。
type SummaryDiagnosis struct {
	StageName string `json:"stage_name"`
	Summary   string `json:"summary,omitempty"`
}

// StyleAnalysis 包含互动风格拆解。
type StyleAnalysis struct {
	InteractionStyle *InteractionStyle `json:"interaction_style,omitempty"`
}

// InteractionStyle 分别给出家长与儿童的分类占比。
type InteractionStyle struct {
	ParentAnalysis *CategoryBreakdown `json:"parent_analysis,omitempty"`
	ChildAnalysis  *CategoryBreakdown `json:"child_analysis,omitempty"`
}

// CategoryBreakdown 为分类占比列表。
type CategoryBreakdown struct {
	Categories []Category `json:"categories"`
}

// Category 为单个行为分类。Label 为稳定键，Name 为展示名，Ratio 取值 [0,1]。
type Category struct {
	Label string  `json:"label"`
	Name  string  `json:"name"`
	Ratio float64 `json:"ratio"`
}

// CoachingAndPlan 为教练建议节。
type CoachingAndPlan struct {
	CoachingPlan *CoachingPlan `json:"coaching_plan,omitempty"`
}

// CoachingPlan 包含建议的挑战。
type CoachingPlan struct {
	Challenge *ChallengePlan `json:"challenge,omitempty"`
}

// ChallengePlan 为 AI 建议的挑战。
type ChallengePlan struct {
	Title           string          `json:"title"`
	Goal            string          `json:"goal"`
	SuggestedPeriod *SuggestedRange `json:"suggested_period,omitempty"`
	Actions         []string        `json:"actions"`
}

// SuggestedRange 为 yyyy-MM-dd 的起止日期，允许缺失。
type SuggestedRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// GrowthReport 为成长报告节。
type GrowthReport struct {
	CurrentMetrics []Metric `json:"current_metrics"`
}

// Metric 为前后对比的行为变化量，数值均为百分比并保留一位小数。
type Metric struct {
	Label     string  `json:"label"`
	Key       string  `json:"key,omitempty"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Diff      float64 `json:"diff"`
	ValueType string  `json:"value_type"`
}

// MetricValueTypeRatio 为占比类指标的 value_type。
const MetricValueTypeRatio = "ratio"

// ParentCategories 返回家长分类占比，任一节缺失时返回 nil。
func (r *Result) ParentCategories() []Category {
	if r == nil || r.StyleAnalysis == nil || r.StyleAnalysis.InteractionStyle == nil ||
		r.StyleAnalysis.InteractionStyle.ParentAnalysis == nil {
		return nil
	}
	return r.StyleAnalysis.InteractionStyle.ParentAnalysis.Categories
}

// ChallengePlan 返回建议挑战，缺失时返回 nil。
func (r *Result) ChallengePlan() *ChallengePlan {
	if r == nil || r.CoachingAndPlan == nil || r.CoachingAndPlan.CoachingPlan == nil {
		return nil
	}
	return r.CoachingAndPlan.CoachingPlan.Challenge
}

// PI 返回 PI 得分，缺失为 0。
func (r *Result) PI() float64 {
	if r == nil || r.Scores == nil || r.Scores.PIScore == nil {
		return 0
	}
	return *r.Scores.PIScore
}

// NDI 返回 NDI 得分，缺失为 0。
func (r *Result) NDI() float64 {
	if r == nil || r.Scores == nil || r.Scores.NDIScore == nil {
		return 0
	}
	return *r.Scores.NDIScore
}

// StageName 返回关系阶段名称。
func (r *Result) StageName() string {
	if r == nil || r.SummaryDiagnosis == nil {
		return ""
	}
	return r.SummaryDiagnosis.StageName
}

// Document 持有完整结果 JSON，并提供类型化读取与局部改写。
// 未建模的字段原样保留。
type Document struct {
	raw  json.RawMessage
	root map[string]json.RawMessage
}

// 结果文档中按节解码的键。
const (
	SectionSchemaVersion    = "schema_version"
	SectionScores           = "scores"
	SectionSummaryDiagnosis = "summary_diagnosis"
	SectionStyleAnalysis    = "style_analysis"
	SectionCoachingAndPlan  = "coaching_and_plan"
	SectionGrowthReport     = "growth_report"
)

// SectionError 记录单个节的解码失败，该节按缺失处理。
type SectionError struct {
	Section string
	Err     error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%s: section %s: %v", ErrMalformedResult, e.Section, e.Err)
}

// Unwrap 同时暴露 ErrMalformedResult 与底层错误。
func (e *SectionError) Unwrap() []error { return []error{ErrMalformedResult, e.Err} }

// NewDocument 校验 raw 为 JSON 对象后构造 Document。
func NewDocument(raw []byte) (*Document, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("%w: empty document", ErrMalformedResult)
	}
	var root map[string]json.RawMessage
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
	}
	if root == nil {
		root = map[string]json.RawMessage{}
	}
	return &Document{raw: append(json.RawMessage(nil), raw...), root: root}, nil
}

// Raw 返回当前 JSON。
func (d *Document) Raw() json.RawMessage {
	if d == nil {
		return nil
	}
	return d.raw
}

// Decode 按节解析为类型化 Result。某一节类型不符时该节置空，
// 其余节照常返回；所有失败节以 *SectionError 合并在 error 中。
// 仅 nil Document 返回 nil Result。
func (d *Document) Decode() (*Result, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil document", ErrMalformedResult)
	}
	var (
		r    Result
		errs []error
	)
	decodeInto(d.root, SectionSchemaVersion, &r.SchemaVersion, &errs)

	var scores Scores
	if decodeInto(d.root, SectionScores, &scores, &errs) {
		r.Scores = &scores
	}
	var diagnosis SummaryDiagnosis
	if decodeInto(d.root, SectionSummaryDiagnosis, &diagnosis, &errs) {
		r.SummaryDiagnosis = &diagnosis
	}
	var style StyleAnalysis
	if decodeInto(d.root, SectionStyleAnalysis, &style, &errs) {
		r.StyleAnalysis = &style
	}
	var coaching CoachingAndPlan
	if decodeInto(d.root, SectionCoachingAndPlan, &coaching, &errs) {
		r.CoachingAndPlan = &coaching
	}
	var growth GrowthReport
	if decodeInto(d.root, SectionGrowthReport, &growth, &errs) {
		r.GrowthReport = &growth
	}
	return &r, errors.Join(errs...)
}

// decodeInto 解码单个节，成功且非空时返回 true。
func decodeInto[T any](root map[string]json.RawMessage, section string, dst *T, errs *[]error) bool {
	raw, ok := root[section]
	if !ok || isNullJSON(raw) {
		return false
	}
	var tmp T
	if err := json.Unmarshal(raw, &tmp); err != nil {
		*errs = append(*errs, &SectionError{Section: section, Err: err})
		return false
	}
	*dst = tmp
	return true
}

func isNullJSON(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// SetGrowthMetrics 覆盖 growth_report.current_metrics，保留 growth_report 的其它字段。
func (d *Document) SetGrowthMetrics(metrics []Metric) error {
	if d == nil {
		return fmt.Errorf("%w: nil document", ErrMalformedResult)
	}
	root := d.root
	growth := map[string]json.RawMessage{}
	if existing, ok := root[SectionGrowthReport]; ok && !isNullJSON(existing) {
		// 非对象的 growth_report 整体替换。
		if err := json.Unmarshal(existing, &growth); err != nil || growth == nil {
			growth = map[string]json.RawMessage{}
		}
	}
	if metrics == nil {
		metrics = []Metric{}
	}
	encodedMetrics, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	growth["current_metrics"] = encodedMetrics
	encodedGrowth, err := json.Marshal(growth)
	if err != nil {
		return err
	}
	root[SectionGrowthReport] = encodedGrowth
	updated, err := json.Marshal(root)
	if err != nil {
		return err
	}
	d.raw = updated
	return nil
}
