package shader

import (
	"github.com/gogpu/marks/internal/ir"
	"github.com/gogpu/marks/internal/layout"
	"github.com/gogpu/marks/internal/selection"
)

// UniformFields lists the Params members of a program. Each channel
// contributes its value uniform and its scale uniforms in channel order,
// followed by the dynamic values of its conditions. Selection uniforms
// follow, then the mark's own fields.
func UniformFields(channels []*ir.Channel, selections []*selection.Def, mark ...layout.UniformField) []layout.UniformField {
	var fields []layout.UniformField
	valueField := func(ch *ir.Channel) layout.UniformField {
		return layout.UniformField{Name: ch.ValueUniform(), Type: ch.ScalarType, Components: ch.InputComponents}
	}
	for _, ch := range channels {
		if ch.Source == ir.SourceUniform {
			fields = append(fields, valueField(ch))
		}
		fields = append(fields, ch.Plan.UniformFields()...)
		for _, c := range ch.Conditions {
			if c.Value != nil && c.Value.Source == ir.SourceUniform {
				fields = append(fields, valueField(c.Value))
			}
		}
	}
	fields = append(fields, selection.UniformFields(selections)...)
	return append(fields, mark...)
}

// SeriesChannels returns the series-backed channels in layout form.
func SeriesChannels(channels []*ir.Channel) []layout.SeriesChannel {
	var out []layout.SeriesChannel
	for _, ch := range channels {
		if ch.Source != ir.SourceSeries {
			continue
		}
		out = append(out, layout.SeriesChannel{
			Name:          ch.Name,
			Type:          ch.ScalarType,
			Components:    ch.InputComponents,
			HighPrecision: ch.HighPrecision,
		})
	}
	return out
}
