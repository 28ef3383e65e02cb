package config

import (
	yaml "gopkg.in/yaml.v2"
)

type yamlConfig struct {
	Handler string `yaml:"handler"`

	Mode struct {
		Debug *bool `yaml:"debug"`
	} `yaml:"mode"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Trace struct {
		Enabled  *bool  `yaml:"enabled"`
		Exporter string `yaml:"exporter"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"trace"`

	Meta struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"meta"`

	Notify struct {
		QueueURL string `yaml:"queueUrl"`
		Encoding string `yaml:"encoding"`
	} `yaml:"notify"`

	HTTP struct {
		Cors         *bool  `yaml:"cors"`
		PageNotFound string `yaml:"pageNotFound"`
		StaticLink []struct {
			SrcPath string `yaml:"srcPath"`
			DstPath string `yaml:"dstPath"`
		} `yaml:"staticLink"`
		PrefixLink []struct {
			SrcPrefix string `yaml:"srcPrefix"`
			DstPrefix string `yaml:"dstPrefix"`
		} `yaml:"prefixLink"`
		HeaderLinkKey []struct {
			Key    string `yaml:"key"`
			Prefix string `yaml:"prefix"`
		} `yaml:"headerLinkKey"`
	} `yaml:"http"`

	Dynamic yaml.MapSlice `yaml:"dynamic"`
}

// applyYAML overlays the fields set in one YAML document.
func (c *Config) applyYAML(b []byte) error {
	var y yamlConfig
	if err := yaml.Unmarshal(b, &y); err != nil {
		return err
	}

	if y.Handler != "" {
		c.Handler = y.Handler
	}
	if y.Mode.Debug != nil {
		c.DebugMode = *y.Mode.Debug
	}
	if y.Log.Level != "" {
		c.LogLevel = y.Log.Level
	}
	if y.Log.Format != "" {
		c.LogFormat = y.Log.Format
	}
	if y.Trace.Enabled != nil {
		c.TraceEnabled = *y.Trace.Enabled
	}
	if y.Trace.Exporter != "" {
		c.TraceExporter = y.Trace.Exporter
	}
	if y.Trace.Endpoint != "" {
		c.TraceEndpoint = y.Trace.Endpoint
	}
	if y.Meta.Enabled != nil {
		c.MetaEnabled = *y.Meta.Enabled
	}
	if y.Notify.QueueURL != "" {
		c.NotifyQueueURL = y.Notify.QueueURL
	}
	if y.Notify.Encoding != "" {
		c.NotifyEncoding = y.Notify.Encoding
	}

	if y.HTTP.Cors != nil {
		c.CorsMode = *y.HTTP.Cors
	}
	if y.HTTP.PageNotFound != "" {
		c.PageNotFoundPath = y.HTTP.PageNotFound
	}
	for _, l := range y.HTTP.StaticLink {
		if l.SrcPath == "" {
			continue
		}
		c.StaticLinks = put(c.StaticLinks, l.SrcPath, l.DstPath)
	}
	for _, l := range y.HTTP.PrefixLink {
		if l.SrcPrefix == "" {
			continue
		}
		c.PrefixLinks = put(c.PrefixLinks, l.SrcPrefix, l.DstPrefix)
	}
	for _, l := range y.HTTP.HeaderLinkKey {
		if l.Key == "" {
			continue
		}
		c.HeaderLinks = put(c.HeaderLinks, l.Key, l.Prefix)
	}

	if len(y.Dynamic) > 0 {
		d, err := yaml.Marshal(y.Dynamic)
		if err != nil {
			return err
		}
		c.Dynamic = d
	}
	return nil
}

func put(m map[string]string, k, v string) map[string]string {
	if m == nil {
		m = make(map[string]string)
	}
	m[k] = v
	return m
}
