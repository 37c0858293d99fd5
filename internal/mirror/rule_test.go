package mirror

import "testing"

func TestDownloadRuleValidate(t *testing.T) {
	testCases := []struct {
		name    string
		rule    DownloadRule
		wantErr bool
	}{
		{
			name: "valid rule",
			rule: DownloadRule{MaxStaticFileSize: 1024, MaxDepth: 2, ProgressUpdateInterval: 250},
		},
		{
			name:    "zero max static file size is invalid",
			rule:    DownloadRule{MaxStaticFileSize: 0, MaxDepth: 1},
			wantErr: true,
		},
		{
			name:    "negative max depth is invalid",
			rule:    DownloadRule{MaxStaticFileSize: 1024, MaxDepth: -1},
			wantErr: true,
		},
		{
			name:    "negative progress interval is invalid",
			rule:    DownloadRule{MaxStaticFileSize: 1024, ProgressUpdateInterval: -1},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.rule.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestDownloadRuleWorkersDefault(t *testing.T) {
	r := DownloadRule{}
	if got := r.workers(); got != DefaultWorkers {
		t.Errorf("workers() = %d, want default %d", got, DefaultWorkers)
	}

	r.MaxConcurrentFetches = 3
	if got := r.workers(); got != 3 {
		t.Errorf("workers() = %d, want 3", got)
	}
}
