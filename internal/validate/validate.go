package validate

import (
	"strings"

	"github.com/passportpix/passportpix/internal/config"
	"github.com/passportpix/passportpix/internal/domain"
)

// Check is the technical validator: a pure, total function from one
// encoded output's measurements to three independent verdicts. No side
// effects, no external calls.
func Check(rules config.PhotoRules, byteSize, width, height int, format string) domain.TechnicalResult {
	return domain.TechnicalResult{
		ByteSize:        byteSize,
		Width:           width,
		Height:          height,
		Format:          format,
		SizeValid:       byteSize >= rules.MinBytes && byteSize <= rules.MaxBytes,
		DimensionsValid: width >= rules.MinWidth && width <= rules.MaxWidth && height >= rules.MinHeight && height <= rules.MaxHeight,
		FormatValid:     strings.EqualFold(format, rules.Format),
	}
}
