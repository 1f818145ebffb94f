package vectorstore

import (
	"github.com/qdrant/go-client/qdrant"
)

// SparseVector is a term-weighted vector as parallel index/value sequences.
type SparseVector struct {
	Indices []uint32
	Values  []float32
}

// DocPayload is the denormalized candidate + document metadata stored with
// every point. All filterable search fields live here.
type DocPayload struct {
	DocType              string
	SourceID             int64
	CandidateID          int64
	ApplicationID        *int64
	JobID                *int64
	EmbeddedText         string
	ChunkIndex           int
	ChunkCount           int
	Skills               []string
	NoticePeriodDays     *int64
	CurrentLocation      string
	TotalExperienceYears *float64
	ExpectedSalaryLPA    *float64
	CanJoinImmediately   bool
	PreferredWorkType    string
	CurrentTitle         string
	CurrentCompany       string
}

// Point is one upsert unit: a deterministic UUID, both vector kinds, and the
// payload.
type Point struct {
	ID      string
	Dense   []float32
	Sparse  SparseVector
	Payload DocPayload
}

// Hit is a scored search result with its payload.
type Hit struct {
	ID      string
	Score   float32
	Payload DocPayload
}

// Filter is a conjunction of payload conditions.
type Filter struct {
	Must []Condition
}

// Condition wraps a single payload predicate.
type Condition struct {
	cond *qdrant.Condition
}

// MatchKeyword matches a keyword field exactly.
func MatchKeyword(key, value string) Condition {
	return Condition{cond: qdrant.NewMatchKeyword(key, value)}
}

// MatchAnyKeyword matches a keyword field against any of the given values.
func MatchAnyKeyword(key string, values []string) Condition {
	return Condition{cond: qdrant.NewMatchKeywords(key, values...)}
}

// MatchInt matches an integer field exactly.
func MatchInt(key string, value int64) Condition {
	return Condition{cond: qdrant.NewMatchInt(key, value)}
}

// MatchAnyInt matches an integer field against any of the given values.
func MatchAnyInt(key string, values []int64) Condition {
	return Condition{cond: qdrant.NewMatchInts(key, values...)}
}

// MatchBool matches a boolean field.
func MatchBool(key string, value bool) Condition {
	return Condition{cond: qdrant.NewMatchBool(key, value)}
}

// RangeGTE matches numeric fields >= value.
func RangeGTE(key string, value float64) Condition {
	return Condition{cond: qdrant.NewRange(key, &qdrant.Range{Gte: qdrant.PtrOf(value)})}
}

// RangeLTE matches numeric fields <= value.
func RangeLTE(key string, value float64) Condition {
	return Condition{cond: qdrant.NewRange(key, &qdrant.Range{Lte: qdrant.PtrOf(value)})}
}

func (f *Filter) toQdrant() *qdrant.Filter {
	if f == nil || len(f.Must) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(f.Must))
	for _, c := range f.Must {
		conditions = append(conditions, c.cond)
	}
	return &qdrant.Filter{Must: conditions}
}

func (p DocPayload) toQdrant() map[string]*qdrant.Value {
	payload := map[string]*qdrant.Value{
		"doc_type":             stringValue(p.DocType),
		"source_id":            intValue(p.SourceID),
		"candidate_id":         intValue(p.CandidateID),
		"embedded_text":        stringValue(p.EmbeddedText),
		"chunk_index":          intValue(int64(p.ChunkIndex)),
		"chunk_count":          intValue(int64(p.ChunkCount)),
		"skills":               stringListValue(p.Skills),
		"can_join_immediately": boolValue(p.CanJoinImmediately),
	}
	if p.ApplicationID != nil {
		payload["application_id"] = intValue(*p.ApplicationID)
	}
	if p.JobID != nil {
		payload["job_id"] = intValue(*p.JobID)
	}
	if p.NoticePeriodDays != nil {
		payload["notice_period_days"] = intValue(*p.NoticePeriodDays)
	}
	if p.TotalExperienceYears != nil {
		payload["total_experience_years"] = doubleValue(*p.TotalExperienceYears)
	}
	if p.ExpectedSalaryLPA != nil {
		payload["expected_salary_lpa"] = doubleValue(*p.ExpectedSalaryLPA)
	}
	if p.CurrentLocation != "" {
		payload["current_location"] = stringValue(p.CurrentLocation)
	}
	if p.PreferredWorkType != "" {
		payload["preferred_work_type"] = stringValue(p.PreferredWorkType)
	}
	if p.CurrentTitle != "" {
		payload["current_title"] = stringValue(p.CurrentTitle)
	}
	if p.CurrentCompany != "" {
		payload["current_company"] = stringValue(p.CurrentCompany)
	}
	return payload
}

func payloadFromQdrant(m map[string]*qdrant.Value) DocPayload {
	p := DocPayload{
		DocType:            getString(m, "doc_type"),
		SourceID:           getInt(m, "source_id"),
		CandidateID:        getInt(m, "candidate_id"),
		EmbeddedText:       getString(m, "embedded_text"),
		ChunkIndex:         int(getInt(m, "chunk_index")),
		ChunkCount:         int(getInt(m, "chunk_count")),
		Skills:             getStringList(m, "skills"),
		CanJoinImmediately: getBool(m, "can_join_immediately"),
		CurrentLocation:    getString(m, "current_location"),
		PreferredWorkType:  getString(m, "preferred_work_type"),
		CurrentTitle:       getString(m, "current_title"),
		CurrentCompany:     getString(m, "current_company"),
	}
	if v, ok := lookupInt(m, "application_id"); ok {
		p.ApplicationID = &v
	}
	if v, ok := lookupInt(m, "job_id"); ok {
		p.JobID = &v
	}
	if v, ok := lookupInt(m, "notice_period_days"); ok {
		p.NoticePeriodDays = &v
	}
	if v, ok := lookupDouble(m, "total_experience_years"); ok {
		p.TotalExperienceYears = &v
	}
	if v, ok := lookupDouble(m, "expected_salary_lpa"); ok {
		p.ExpectedSalaryLPA = &v
	}
	return p
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(i int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}}
}

func doubleValue(f float64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: f}}
}

func boolValue(b bool) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: b}}
}

func stringListValue(values []string) *qdrant.Value {
	list := make([]*qdrant.Value, 0, len(values))
	for _, v := range values {
		list = append(list, stringValue(v))
	}
	return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: list}}}
}

func getString(m map[string]*qdrant.Value, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

func getInt(m map[string]*qdrant.Value, key string) int64 {
	v, _ := lookupInt(m, key)
	return v
}

func lookupInt(m map[string]*qdrant.Value, key string) (int64, bool) {
	if v, ok := m[key]; ok {
		if i, ok := v.Kind.(*qdrant.Value_IntegerValue); ok {
			return i.IntegerValue, true
		}
	}
	return 0, false
}

func lookupDouble(m map[string]*qdrant.Value, key string) (float64, bool) {
	if v, ok := m[key]; ok {
		switch kind := v.Kind.(type) {
		case *qdrant.Value_DoubleValue:
			return kind.DoubleValue, true
		case *qdrant.Value_IntegerValue:
			return float64(kind.IntegerValue), true
		}
	}
	return 0, false
}

func getBool(m map[string]*qdrant.Value, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.Kind.(*qdrant.Value_BoolValue); ok {
			return b.BoolValue
		}
	}
	return false
}

func getStringList(m map[string]*qdrant.Value, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	list, ok := v.Kind.(*qdrant.Value_ListValue)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list.ListValue.Values))
	for _, item := range list.ListValue.Values {
		if s, ok := item.Kind.(*qdrant.Value_StringValue); ok {
			out = append(out, s.StringValue)
		}
	}
	return out
}
