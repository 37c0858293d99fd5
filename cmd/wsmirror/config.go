package main

import (
	"os"

	"github.com/BurntSushi/toml"

	"wsmirror/internal/mirror"
)

// ruleFile is the on-disk shape of an optional TOML rule file passed
// via --rule-file; any field left unset keeps its flag/viper-derived
// default. Field names mirror DownloadRule directly rather than the
// IPC wire's camelCase CLONE.props, since this file is a CLI-only
// convenience, not a wire contract.
type ruleFile struct {
	MaxStaticFileSize                     *int64   `toml:"max_static_file_size"`
	DownloadStaticResourceWithUnknownSize *bool    `toml:"download_static_resource_with_unknown_size"`
	ProgressUpdateInterval                *int64   `toml:"progress_update_interval"`
	MaxDepth                              *int     `toml:"max_depth"`
	BlackList                             []string `toml:"blacklist"`
	AbortOnDownloadError                  *bool    `toml:"abort_on_download_error"`
}

// applyRuleFile decodes path as TOML and overlays any set fields onto
// base. A missing path is not an error: the rule file is optional.
func applyRuleFile(path string, base mirror.DownloadRule) (mirror.DownloadRule, error) {
	if path == "" {
		return base, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return base, nil
	}

	var f ruleFile
	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return base, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return base, undecodedKeysError(undecoded)
	}

	if f.MaxStaticFileSize != nil {
		base.MaxStaticFileSize = *f.MaxStaticFileSize
	}
	if f.DownloadStaticResourceWithUnknownSize != nil {
		base.DownloadStaticResourceWithUnknownSize = *f.DownloadStaticResourceWithUnknownSize
	}
	if f.ProgressUpdateInterval != nil {
		base.ProgressUpdateInterval = *f.ProgressUpdateInterval
	}
	if f.MaxDepth != nil {
		base.MaxDepth = *f.MaxDepth
	}
	if f.BlackList != nil {
		base.BlackList = f.BlackList
	}
	if f.AbortOnDownloadError != nil {
		base.AbortOnDownloadError = *f.AbortOnDownloadError
	}
	return base, nil
}

type undecodedKeysError []toml.Key

func (e undecodedKeysError) Error() string {
	msg := "unrecognized rule file keys:"
	for _, k := range e {
		msg += " " + k.String()
	}
	return msg
}
