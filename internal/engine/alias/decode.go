package alias

import "github.com/francoispqt/gojay"

// projectConfig mirrors the parts of jsconfig.json / tsconfig.json read here.
// gojay visits keys in document order, which keeps paths in declared order.
type projectConfig struct {
	compilerOptions compilerOptions
}

type compilerOptions struct {
	baseURL string
	paths   pathEntries
}

type pathEntry struct {
	pattern string
	target  string
}

type pathEntries []pathEntry

func (p *projectConfig) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	if key == "compilerOptions" {
		return dec.Object(&p.compilerOptions)
	}
	return nil
}

func (p *projectConfig) NKeys() int { return 0 }

func (c *compilerOptions) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	switch key {
	case "baseUrl":
		return dec.String(&c.baseURL)
	case "paths":
		return dec.Object(&c.paths)
	}
	return nil
}

func (c *compilerOptions) NKeys() int { return 0 }

// UnmarshalJSONObject keeps only the first target of each pattern. Patterns
// whose value is not a non-empty array of strings are skipped.
func (p *pathEntries) UnmarshalJSONObject(dec *gojay.Decoder, key string) error {
	var raw interface{}
	if err := dec.Interface(&raw); err != nil {
		return err
	}
	targets, ok := raw.([]interface{})
	if !ok || len(targets) == 0 {
		return nil
	}
	first, ok := targets[0].(string)
	if !ok {
		return nil
	}
	*p = append(*p, pathEntry{pattern: key, target: first})
	return nil
}

func (p *pathEntries) NKeys() int { return 0 }
