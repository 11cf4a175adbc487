package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tombee/odoo-mcp-bridge/internal/classify"
	"github.com/tombee/odoo-mcp-bridge/internal/registry"
	"github.com/tombee/odoo-mcp-bridge/internal/rpcerr"
	"github.com/tombee/odoo-mcp-bridge/internal/safety"
)

// Caps mirrors the closed set of numeric ceilings the specification pins to
// each tool.
const (
	SearchReadDefaultLimit = 80
	SearchReadMaxLimit     = 500
	ReadMaxIDs             = 100
	NameGetMaxIDs          = 200
	WriteMaxIDs            = 100
	UnlinkMaxIDs           = 50
)

// backendExecutor is the narrow surface the executor needs from the
// Connection Manager: one RPC call.
type backendExecutor interface {
	Execute(ctx context.Context, model, method string, args []interface{}, kwargs, callCtx map[string]interface{}) (interface{}, error)
}

// Session identifies the caller for rate limiting and audit attribution.
// CallCtx carries an optional Odoo call-context overlay (active_model,
// active_id, active_ids and the like) merged into every backend RPC this
// session makes — the wizard executor sets it to scope a wizard's
// default_get/create/action-method sequence to the record it was opened
// against.
type Session struct {
	ID      string
	UID     int
	CallCtx map[string]interface{}
}

// Executor ties the Connection Manager, Model Registry, Safety Gate, Error
// Classifier, rate limiter and audit writer together into the closed set of
// CRUD tool operations.
type Executor struct {
	conn       backendExecutor
	registry   *registry.Registry
	policy     *safety.Policy
	classifier *classify.Classifier
	limiter    *safety.RateLimiter
	audit      *safety.AuditWriter
}

// NewExecutor wires the collaborators the Toolset Framework's core toolset
// hands every registered tool.
func NewExecutor(conn backendExecutor, reg *registry.Registry, policy *safety.Policy, classifier *classify.Classifier, limiter *safety.RateLimiter, audit *safety.AuditWriter) *Executor {
	return &Executor{conn: conn, registry: reg, policy: policy, classifier: classifier, limiter: limiter, audit: audit}
}

// ToolError is the uniform failure envelope: either the classifier's
// structured backend-fault response, or a locally synthesized one for a
// safety-gate denial, a validation failure, or a rate-limit rejection.
type ToolError struct {
	Response *classify.Response
}

func (e *ToolError) Error() string { return e.Response.Message }

func deniedError(reason string) *ToolError {
	return &ToolError{Response: &classify.Response{
		Error: true, Category: classify.CategoryAccess, Code: "SAFETY_GATE_DENIED",
		Message: reason, Retry: false,
	}}
}

func validationError(err error) *ToolError {
	return &ToolError{Response: &classify.Response{
		Error: true, Category: classify.CategoryValidation, Code: "VALIDATION_ERROR",
		Message: err.Error(), Retry: false,
	}}
}

func rateLimitedError(retryAfter int) *ToolError {
	return &ToolError{Response: &classify.Response{
		Error: true, Category: classify.CategoryRateLimit, Code: "RATE_LIMITED",
		Message: "too many requests for this session", Retry: true, RetryAfter: retryAfter,
	}}
}

func (ex *Executor) classify(err error, model, method string) *ToolError {
	fault, ok := err.(*rpcerr.Fault)
	if !ok {
		fault = rpcerr.New(err.Error(), "")
	}
	return &ToolError{Response: ex.classifier.Classify(fault, model, method)}
}

func (ex *Executor) checkRead(sess Session, op safety.Operation, model string, fields []string) *ToolError {
	if !ex.limiter.AllowRead(sess.ID) {
		return rateLimitedError(ex.limiter.RetryAfter(sess.ID, false))
	}
	d := ex.policy.Check(op, model, fields, "")
	if !d.Allowed {
		return deniedError(d.Reason)
	}
	return nil
}

func (ex *Executor) checkWrite(sess Session, op safety.Operation, model string, fields []string, method string) *ToolError {
	if !ex.limiter.AllowWrite(sess.ID) {
		return rateLimitedError(ex.limiter.RetryAfter(sess.ID, true))
	}
	d := ex.policy.Check(op, model, fields, method)
	if !d.Allowed {
		return deniedError(d.Reason)
	}
	return nil
}

func (ex *Executor) auditLog(sess Session, op safety.Operation, model string, values map[string]interface{}, resultID interface{}, success bool, started time.Time) {
	if ex.audit == nil || !ex.audit.ShouldLog(op) {
		return
	}
	_, _, binary, _, _ := ex.fieldKinds(model)
	values = safety.SanitizeValues(values, ex.policy.FieldBlocklist, binary)
	ex.audit.Log(safety.AuditEvent{
		Timestamp: started, SessionID: sess.ID, Tool: string(op), Model: model,
		Operation: string(op), Values: values, ResultID: resultID, Success: success,
		DurationMS: time.Since(started).Milliseconds(), UID: sess.UID,
	})
}

// SearchReadRequest is search_read's input.
type SearchReadRequest struct {
	Model  string
	Domain []interface{}
	Fields []string
	Limit  int
	Offset int
	Order  string
}

// SearchReadResult carries the has_more flag the specification requires.
type SearchReadResult struct {
	Records []map[string]interface{}
	HasMore bool
}

func (ex *Executor) SearchRead(ctx context.Context, sess Session, req SearchReadRequest) (*SearchReadResult, *ToolError) {
	if err := ValidateDomain(req.Domain); err != nil {
		return nil, validationError(err)
	}
	if tErr := ex.checkRead(sess, safety.OpSearch, req.Model, req.Fields); tErr != nil {
		return nil, tErr
	}

	limit := req.Limit
	if limit <= 0 {
		limit = SearchReadDefaultLimit
	}
	if limit > SearchReadMaxLimit {
		limit = SearchReadMaxLimit
	}

	kwargs := map[string]interface{}{"fields": req.Fields, "limit": limit, "offset": req.Offset}
	if req.Order != "" {
		kwargs["order"] = req.Order
	}

	raw, err := ex.conn.Execute(ctx, req.Model, "search_read", []interface{}{req.Domain}, kwargs, sess.CallCtx)
	if err != nil {
		return nil, ex.classify(err, req.Model, "search_read")
	}

	records := toRecordSlice(raw)
	normalized := ex.normalizeRecords(req.Model, records, fieldSet(req.Fields), false)
	return &SearchReadResult{Records: normalized, HasMore: len(normalized) == limit}, nil
}

// ReadRequest is read's input.
type ReadRequest struct {
	Model  string
	IDs    []int
	Fields []string
}

// ReadResult separates found records from ids the backend didn't return.
type ReadResult struct {
	Records []map[string]interface{}
	Missing []int
}

func (ex *Executor) Read(ctx context.Context, sess Session, req ReadRequest) (*ReadResult, *ToolError) {
	if len(req.IDs) > ReadMaxIDs {
		return nil, validationError(fmt.Errorf("read accepts at most %d ids, got %d", ReadMaxIDs, len(req.IDs)))
	}
	if tErr := ex.checkRead(sess, safety.OpRead, req.Model, req.Fields); tErr != nil {
		return nil, tErr
	}

	idArgs := make([]interface{}, len(req.IDs))
	for i, id := range req.IDs {
		idArgs[i] = id
	}

	raw, err := ex.conn.Execute(ctx, req.Model, "read", []interface{}{idArgs}, map[string]interface{}{"fields": req.Fields}, sess.CallCtx)
	if err != nil {
		return nil, ex.classify(err, req.Model, "read")
	}

	records := toRecordSlice(raw)
	normalized := ex.normalizeRecords(req.Model, records, fieldSet(req.Fields), false)

	found := make(map[int]bool, len(normalized))
	for _, rec := range normalized {
		if id, ok := recordID(rec); ok {
			found[id] = true
		}
	}
	var missing []int
	for _, id := range req.IDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return &ReadResult{Records: normalized, Missing: missing}, nil
}

func (ex *Executor) Count(ctx context.Context, sess Session, model string, domain []interface{}) (int, *ToolError) {
	if err := ValidateDomain(domain); err != nil {
		return 0, validationError(err)
	}
	if tErr := ex.checkRead(sess, safety.OpCount, model, nil); tErr != nil {
		return 0, tErr
	}
	raw, err := ex.conn.Execute(ctx, model, "search_count", []interface{}{domain}, nil, sess.CallCtx)
	if err != nil {
		return 0, ex.classify(err, model, "search_count")
	}
	return toInt(raw), nil
}

// FieldsGet returns the model's field metadata with blocklisted fields
// stripped, per the registry rather than a live call, since the registry
// already carries this and its result is safety-filtered identically.
func (ex *Executor) FieldsGet(sess Session, model string) (map[string]registry.FieldInfo, *ToolError) {
	if tErr := ex.checkRead(sess, safety.OpFieldsGet, model, nil); tErr != nil {
		return nil, tErr
	}
	mi, ok := ex.registry.GetModel(model)
	if !ok {
		return nil, validationError(fmt.Errorf("model %q is not known to the registry", model))
	}
	out := make(map[string]registry.FieldInfo, len(mi.Fields))
	for name, f := range mi.Fields {
		if ex.policy.Check(safety.OpFieldsGet, model, []string{name}, "").Allowed {
			out[name] = f
		}
	}
	return out, nil
}

func (ex *Executor) NameGet(ctx context.Context, sess Session, model string, ids []int) ([]map[string]interface{}, *ToolError) {
	if len(ids) > NameGetMaxIDs {
		return nil, validationError(fmt.Errorf("name_get accepts at most %d ids, got %d", NameGetMaxIDs, len(ids)))
	}
	if tErr := ex.checkRead(sess, safety.OpNameGet, model, nil); tErr != nil {
		return nil, tErr
	}
	idArgs := make([]interface{}, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}
	raw, err := ex.conn.Execute(ctx, model, "name_get", []interface{}{idArgs}, nil, sess.CallCtx)
	if err != nil {
		return nil, ex.classify(err, model, "name_get")
	}
	pairs, _ := raw.([]interface{})
	out := make([]map[string]interface{}, 0, len(pairs))
	for _, p := range pairs {
		if isRelationalPair(p) {
			out = append(out, normalizeRelational(p))
		}
	}
	return out, nil
}

func (ex *Executor) DefaultGet(ctx context.Context, sess Session, model string, fields []string) (map[string]interface{}, *ToolError) {
	if tErr := ex.checkRead(sess, safety.OpDefaultGet, model, fields); tErr != nil {
		return nil, tErr
	}
	fieldArgs := make([]interface{}, len(fields))
	for i, f := range fields {
		fieldArgs[i] = f
	}
	raw, err := ex.conn.Execute(ctx, model, "default_get", []interface{}{fieldArgs}, nil, sess.CallCtx)
	if err != nil {
		return nil, ex.classify(err, model, "default_get")
	}
	values, _ := raw.(map[string]interface{})
	return ex.normalizeRecords(model, []map[string]interface{}{values}, fieldSet(fields), false)[0], nil
}

// ListModels returns registry-known model names matching substring, with
// blocklisted models stripped, requiring at least read rights to run at
// all — the specification's "reader rights required" cap.
func (ex *Executor) ListModels(sess Session, substring string) ([]string, *ToolError) {
	if tErr := ex.checkRead(sess, safety.OpRead, "*", nil); tErr != nil {
		return nil, tErr
	}
	all := ex.registry.ListModels(substring)
	out := make([]string, 0, len(all))
	for _, m := range all {
		if ex.policy.Check(safety.OpRead, m, nil, "").Allowed {
			out = append(out, m)
		}
	}
	return out, nil
}

func (ex *Executor) Create(ctx context.Context, sess Session, model string, values map[string]interface{}) (int, *ToolError) {
	started := time.Now()
	fields := fieldNames(values)
	if tErr := ex.checkWrite(sess, safety.OpCreate, model, fields, ""); tErr != nil {
		return 0, tErr
	}
	raw, err := ex.conn.Execute(ctx, model, "create", []interface{}{values}, nil, sess.CallCtx)
	if err != nil {
		ex.auditLog(sess, safety.OpCreate, model, values, nil, false, started)
		return 0, ex.classify(err, model, "create")
	}
	id := toInt(raw)
	ex.auditLog(sess, safety.OpCreate, model, values, id, true, started)
	return id, nil
}

func (ex *Executor) Write(ctx context.Context, sess Session, model string, ids []int, values map[string]interface{}) (bool, *ToolError) {
	started := time.Now()
	if len(ids) > WriteMaxIDs {
		return false, validationError(fmt.Errorf("write accepts at most %d ids, got %d", WriteMaxIDs, len(ids)))
	}
	fields := fieldNames(values)
	for _, f := range fields {
		if ro, ok := ex.registry.GetField(model, f); ok && ro.Readonly {
			return false, validationError(fmt.Errorf("field %q on %q is readonly", f, model))
		}
	}
	if tErr := ex.checkWrite(sess, safety.OpWrite, model, fields, ""); tErr != nil {
		return false, tErr
	}
	idArgs := make([]interface{}, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}
	raw, err := ex.conn.Execute(ctx, model, "write", []interface{}{idArgs, values}, nil, sess.CallCtx)
	if err != nil {
		ex.auditLog(sess, safety.OpWrite, model, values, ids, false, started)
		return false, ex.classify(err, model, "write")
	}
	ok, _ := raw.(bool)
	ex.auditLog(sess, safety.OpWrite, model, values, ids, ok, started)
	return ok, nil
}

func (ex *Executor) Unlink(ctx context.Context, sess Session, model string, ids []int) (bool, *ToolError) {
	started := time.Now()
	if len(ids) > UnlinkMaxIDs {
		return false, validationError(fmt.Errorf("unlink accepts at most %d ids, got %d", UnlinkMaxIDs, len(ids)))
	}
	if tErr := ex.checkWrite(sess, safety.OpUnlink, model, nil, ""); tErr != nil {
		return false, tErr
	}
	idArgs := make([]interface{}, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}
	raw, err := ex.conn.Execute(ctx, model, "unlink", []interface{}{idArgs}, nil, sess.CallCtx)
	if err != nil {
		ex.auditLog(sess, safety.OpUnlink, model, nil, ids, false, started)
		return false, ex.classify(err, model, "unlink")
	}
	ok, _ := raw.(bool)
	ex.auditLog(sess, safety.OpUnlink, model, nil, ids, ok, started)
	return ok, nil
}

// ExecuteRequest is the generic model.method(args, kwargs) escape hatch.
type ExecuteRequest struct {
	Model  string
	Method string
	Args   []interface{}
	Kwargs map[string]interface{}
}

func (ex *Executor) Execute(ctx context.Context, sess Session, req ExecuteRequest) (interface{}, *ToolError) {
	started := time.Now()
	if strings.HasPrefix(req.Method, "_") {
		return nil, validationError(fmt.Errorf("method %q is private and cannot be called through execute", req.Method))
	}
	if tErr := ex.checkWrite(sess, safety.OpExecute, req.Model, nil, req.Method); tErr != nil {
		return nil, tErr
	}

	kwargs := req.Kwargs
	if !ex.registry.MethodAcceptsKwargs(req.Model, req.Method) {
		kwargs = nil
	}

	raw, err := ex.conn.Execute(ctx, req.Model, req.Method, req.Args, kwargs, sess.CallCtx)
	if err != nil {
		ex.auditLog(sess, safety.OpExecute, req.Model, nil, nil, false, started)
		return nil, ex.classify(err, req.Model, req.Method)
	}
	ex.auditLog(sess, safety.OpExecute, req.Model, nil, nil, true, started)
	return raw, nil
}

// fieldSet builds the requestedBinary lookup NormalizeRecord needs from a
// caller's explicit field list, so a binary field is kept only when the
// caller actually asked for it by name.
func fieldSet(fields []string) map[string]bool {
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

func fieldNames(values map[string]interface{}) []string {
	out := make([]string, 0, len(values))
	for k := range values {
		out = append(out, k)
	}
	return out
}

func toRecordSlice(raw interface{}) []map[string]interface{} {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]interface{}); ok {
			out = append(out, rec)
		}
	}
	return out
}

func recordID(rec map[string]interface{}) (int, bool) {
	v, ok := rec["id"]
	if !ok {
		return 0, false
	}
	return toInt(v), true
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// normalizeRecords applies NormalizeRecord to a batch using the registry's
// field metadata to classify each field as date/datetime/binary/HTML/
// relational.
func (ex *Executor) normalizeRecords(model string, records []map[string]interface{}, requestedBinary map[string]bool, rawHTML bool) []map[string]interface{} {
	dateFields, datetimeFields, binaryFields, htmlFields, relationalFields := ex.fieldKinds(model)
	out := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		out[i] = NormalizeRecord(rec, dateFields, datetimeFields, binaryFields, htmlFields, relationalFields, requestedBinary, rawHTML)
	}
	return out
}

func (ex *Executor) fieldKinds(model string) (date, datetime, binary, html, relational map[string]bool) {
	date, datetime, binary, html, relational = map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}, map[string]bool{}
	mi, ok := ex.registry.GetModel(model)
	if !ok {
		return
	}
	for name, f := range mi.Fields {
		switch f.Type {
		case registry.FieldDate:
			date[name] = true
		case registry.FieldDatetime:
			datetime[name] = true
		case registry.FieldBinary:
			binary[name] = true
		case registry.FieldHTML:
			html[name] = true
		case registry.FieldMany2one, registry.FieldOne2many, registry.FieldMany2many:
			relational[name] = true
		}
	}
	return
}
