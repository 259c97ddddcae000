package errors

import (
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "tokenizer", false},
		{"valid with dash", "my-pipeline", false},
		{"valid with underscore", "my_pipeline", false},
		{"valid with dot", "text.featurize", false},

		{"empty", "", true},
		{"too long", string(make([]byte, 300)), true},
		{"path traversal ..", "foo/../bar", true},
		{"path traversal //", "foo//bar", true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"carriage return", "foo\rbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateOpName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "lower", false},
		{"valid namespaced", "text.tokenize", false},
		{"valid underscore", "tf_idf", false},
		{"valid digits", "ngram2", false},

		{"empty", "", true},
		{"uppercase", "Lower", true},
		{"leading digit", "2gram", true},
		{"trailing dot", "text.", true},
		{"spaces", "to kenize", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOpName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateOpName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateManifestFilename(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid manifest", "pipeline.toml", false},
		{"valid named", "newsgroups.toml", false},

		{"empty", "", true},
		{"wrong extension", "pipeline.yaml", true},
		{"with path /", "path/to/pipeline.toml", true},
		{"with path \\", "path\\to\\pipeline.toml", true},
		{"hidden file", ".pipeline.toml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManifestFilename(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateManifestFilename(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid relative", "pipelines/text.toml", false},
		{"valid simple", "out.svg", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "foo/../../bar", true},
		{"backslash", "foo\\bar", true},
		{"null byte", "foo\x00bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
