package types

// MalformedVariantText is rendered in place of a variant that carries
// neither parsed text nor a description.
const MalformedVariantText = "Due to the site being in beta, an error occurred when parsing this variant."

type LineRef struct {
	ID         string `json:"xml_id"`
	LineNumber int    `json:"line_number"`
}

type Variant struct {
	ID             string  `json:"id"`
	Text           string  `json:"variant"`
	Description    *string `json:"description"`
	WitnessMeter   string  `json:"witness_meter"`
	WitnessFormula string  `json:"witness_formula"`
}

// Display returns the variant words and whether the description was used
// in their place.
func (v Variant) Display() (text string, usedDescription bool) {
	if v.Text != "" {
		return v.Text, false
	}
	if v.Description == nil {
		return MalformedVariantText, false
	}
	return *v.Description, true
}

func (v Variant) DescriptionText() string {
	if v.Description == nil {
		return ""
	}
	return *v.Description
}

type Note struct {
	ID           string    `json:"xml_id"`
	Lines        []LineRef `json:"lines,omitempty"`
	Variants     []Variant `json:"variants"`
	WitnessMeter string    `json:"witness_meter,omitempty"`

	// LineRange is "<first>-<last>: " for notes spanning several lines.
	LineRange string `json:"-"`
}
