package schemafile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vitebski/csv-synth/pkg/models"
)

// RenderText returns a plain-text rendering of a schema, one block per column
// listing every property as "key: value".
func RenderText(schema *models.Schema) string {
	var sb strings.Builder

	for i, c := range schema.Columns {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s\n", c.Name)
		fmt.Fprintf(&sb, "  %s: %s\n", KeyDeducedType, c.Type())
		fmt.Fprintf(&sb, "  %s: %t\n", KeyIsNumeric, c.IsNumeric())
		fmt.Fprintf(&sb, "  %s: %t\n", KeyNullable, c.Nullable)

		switch p := c.Profile.(type) {
		case models.NumericProfile:
			fmt.Fprintf(&sb, "  %s: %s\n", KeyMinValue, formatBound(p.Min, p.Integer))
			fmt.Fprintf(&sb, "  %s: %s\n", KeyMaxValue, formatBound(p.Max, p.Integer))
		case models.CategoricalProfile:
			fmt.Fprintf(&sb, "  %s: [%s]\n", KeyCategories, strings.Join(p.Categories, ", "))
			weights := make([]string, 0, len(p.Categories))
			for _, label := range p.Categories {
				weights = append(weights, fmt.Sprintf("%s=%s", label, strconv.FormatFloat(p.Proportions[label], 'f', -1, 64)))
			}
			fmt.Fprintf(&sb, "  %s: {%s}\n", KeyProportions, strings.Join(weights, ", "))
		case models.DateProfile:
			fmt.Fprintf(&sb, "  %s: %s\n", KeyDateFormat, p.Format)
			fmt.Fprintf(&sb, "  %s: [%s]\n", KeyDates, strings.Join(p.Dates, ", "))
		case models.TextProfile:
			fmt.Fprintf(&sb, "  %s: %d\n", KeyCount, p.Count)
		}
	}

	return sb.String()
}

func formatBound(v float64, integer bool) string {
	if integer {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
