package materials

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/fieldops/fieldops/internal/platform/fieldapi"
	p "github.com/fieldops/fieldops/internal/platform/payload"
)

var (
	shortfallLists = []p.Accessor{
		p.Key("insuficientes", "shortfalls", "faltantes", "insufficient", "errors", "errores", "detalles", "details"),
	}
	shortfallName = []p.Accessor{
		p.Key("materialName", "nombreMaterial"),
		p.Refs([]string{"material", "item", "producto"}, nameFields...),
		p.Key("name", "nombre", "descripcion", "description", "ref", "codigo", "code"),
	}
	shortfallQty = []p.Accessor{
		p.Key("faltante", "shortfall", "missing", "deficit", "cantidadFaltante", "shortage"),
	}
	shortfallRequested = []p.Accessor{
		p.Key("solicitado", "requested", "requerido", "required", "cantidadSolicitada"),
	}
	shortfallAvailable = []p.Accessor{
		p.Key("disponible", "available", "stock", "existencia"),
	}
	shortfallUnit = []p.Accessor{
		p.Key("unit", "unidadMedida"),
		p.Ref("unidad", unitFields...),
	}
	shortfallMessage = []p.Accessor{
		p.Key("message", "mensaje", "msg", "detail", "error"),
	}
	// problem and envelope members that never name a material
	shortfallMeta = []p.Accessor{
		p.Key("status", "statusCode", "code", "codigo", "title", "type", "instance", "timestamp", "path"),
	}
)

// ValidationDetails extracts the per-material shortfall breakdown from a
// 422 answer as flat "material: shortfall" lines. It returns nil for any
// other error.
func ValidationDetails(err error) []string {
	var apiErr *fieldapi.Error
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnprocessableEntity {
		return nil
	}
	return ParseShortfalls(apiErr.Body)
}

// ParseShortfalls flattens a shortfall breakdown. The breakdown may be an
// array of entries or an object keyed by material, either wrapped under a
// list key or as the body itself; entries may be strings, numbers or objects.
func ParseShortfalls(body any) []string {
	source := body
	if obj, ok := p.AsObject(body); ok {
		source = nil
		if list, found := p.List(obj, shortfallLists...); found {
			source = list
		} else if nested, found := p.FirstObject(obj, shortfallLists...); found {
			source = map[string]any(nested)
		} else if bare, found := keyedBody(obj); found {
			source = bare
		}
	}

	var out []string
	switch v := source.(type) {
	case []any:
		for _, entry := range v {
			if line := shortfallLine("", entry); line != "" {
				out = append(out, line)
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if line := shortfallLine(k, v[k]); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}

// keyedBody treats a body without list or message members as the keyed
// breakdown itself, minus problem metadata.
func keyedBody(obj p.Object) (map[string]any, bool) {
	if present(obj, shortfallLists) || present(obj, shortfallMessage) {
		return nil, false
	}
	out := make(map[string]any, len(obj))
	for key, value := range obj {
		if present(p.Object{key: value}, shortfallMeta) {
			continue
		}
		out[key] = value
	}
	return out, len(out) > 0
}

func present(obj p.Object, accessors []p.Accessor) bool {
	for _, accessor := range accessors {
		if len(accessor(obj)) > 0 {
			return true
		}
	}
	return false
}

func shortfallLine(key string, entry any) string {
	if obj, ok := p.AsObject(entry); ok {
		name := str(obj, shortfallName)
		if name == "" {
			name = key
		}
		qty, hasQty := p.Number(obj, shortfallQty...)
		if !hasQty {
			requested, okReq := p.Number(obj, shortfallRequested...)
			available, okAvail := p.Number(obj, shortfallAvailable...)
			if okReq && okAvail {
				qty, hasQty = requested-available, true
			}
		}
		if !hasQty {
			msg := str(obj, shortfallMessage)
			return joinShortfall(name, msg)
		}
		amount := strconv.FormatFloat(qty, 'f', -1, 64)
		if unit := str(obj, shortfallUnit); unit != "" {
			amount += " " + unit
		}
		return joinShortfall(name, amount)
	}
	if list, ok := entry.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, v := range list {
			if text, ok := p.ToString(v); ok {
				parts = append(parts, text)
			}
		}
		return joinShortfall(key, strings.Join(parts, "; "))
	}
	text, ok := p.ToString(entry)
	if !ok {
		return ""
	}
	return joinShortfall(key, text)
}

func joinShortfall(name, detail string) string {
	switch {
	case name == "" && detail == "":
		return ""
	case name == "":
		return detail
	case detail == "":
		return name
	default:
		return fmt.Sprintf("%s: %s", name, detail)
	}
}
