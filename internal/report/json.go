package report

import (
	"encoding/json"
	"io"

	"github.com/lucasnoah/gateagent/internal/gate"
)

// JSON writes rep as indented JSON.
func JSON(w io.Writer, rep *gate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
