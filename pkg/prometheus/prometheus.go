// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package prometheus exports kernel statistics in the Prometheus text format,
// documented at:
// https://prometheus.io/docs/instrumenting/exposition_formats/
package prometheus

import (
	"fmt"
	"io"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"google.golang.org/protobuf/proto"
)

// Type is a Prometheus metric type.
type Type int

// List of supported Prometheus metric types.
const (
	TypeGauge = Type(iota)
	TypeCounter
)

func (t Type) proto() *dto.MetricType {
	switch t {
	case TypeGauge:
		return dto.MetricType_GAUGE.Enum()
	case TypeCounter:
		return dto.MetricType_COUNTER.Enum()
	default:
		panic(fmt.Sprintf("unknown metric type %d", t))
	}
}

// Metric is a Prometheus metric metadata.
type Metric struct {
	// Name is the Prometheus metric name.
	Name string

	// Type is the type of the metric.
	Type Type

	// Help is an optional helpful string explaining what the metric is about.
	Help string
}

// Labels maps label names to values.
type Labels map[string]string

// Data is a single data point of a metric.
type Data struct {
	Labels Labels
	Value  float64
}

// Family is a metric along with its data points.
type Family struct {
	Metric
	Data []Data
}

// NewFamily returns an empty family for m.
func NewFamily(m Metric) *Family {
	return &Family{Metric: m}
}

// Add appends a data point to f.
func (f *Family) Add(value float64, labels Labels) {
	f.Data = append(f.Data, Data{Labels: labels, Value: value})
}

// validate checks that f can be exported.
func (f *Family) validate() error {
	if !model.IsValidMetricName(model.LabelValue(f.Name)) {
		return fmt.Errorf("invalid metric name %q", f.Name)
	}
	for _, d := range f.Data {
		for name := range d.Labels {
			if !model.LabelName(name).IsValid() {
				return fmt.Errorf("metric %q has invalid label name %q", f.Name, name)
			}
		}
		if f.Type == TypeCounter && d.Value < 0 {
			return fmt.Errorf("counter %q has negative value %v", f.Name, d.Value)
		}
	}
	return nil
}

// toProto converts f to its protocol buffer form. Labels are sorted by name.
func (f *Family) toProto() *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(f.Name),
		Type: f.Type.proto(),
	}
	if f.Help != "" {
		mf.Help = proto.String(f.Help)
	}
	for _, d := range f.Data {
		m := &dto.Metric{}
		names := make([]string, 0, len(d.Labels))
		for name := range d.Labels {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			m.Label = append(m.Label, &dto.LabelPair{
				Name:  proto.String(name),
				Value: proto.String(d.Labels[name]),
			})
		}
		switch f.Type {
		case TypeGauge:
			m.Gauge = &dto.Gauge{Value: proto.Float64(d.Value)}
		case TypeCounter:
			m.Counter = &dto.Counter{Value: proto.Float64(d.Value)}
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

// Write writes families to w in the Prometheus text format. Families without
// data points are skipped.
func Write(w io.Writer, families []*Family) error {
	seen := make(map[string]bool)
	for _, f := range families {
		if seen[f.Name] {
			return fmt.Errorf("duplicate metric %q", f.Name)
		}
		seen[f.Name] = true
		if err := f.validate(); err != nil {
			return err
		}
	}
	for _, f := range families {
		if len(f.Data) == 0 {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, f.toProto()); err != nil {
			return fmt.Errorf("writing metric %q: %w", f.Name, err)
		}
	}
	return nil
}
