package registry

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierr "mlregistry.io/assetx/pkg/errors"
)

// fakeBin writes an executable that prints stdout, prints stderr, and exits
// with the given code, standing in for the registry CLI.
func fakeBin(t *testing.T, stdout string, stderr string, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake CLI script requires a unix shell")
	}
	path := filepath.Join(t.TempDir(), "az")
	script := "#!/bin/sh\n" +
		"printf '%s' " + shellQuote(stdout) + "\n" +
		"printf '%s' " + shellQuote(stderr) + " >&2\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func shellQuote(s string) string {
	return "'" + s + "'"
}

func TestGetAsset(t *testing.T) {
	c := &Client{Bin: fakeBin(t, `{"id":"azureml://registries/reg/environments/env/versions/1","name":"env","version":"1"}`, "", 0)}
	details, err := c.GetAsset(context.Background(), "environment", "env", "1", "reg")
	require.NoError(t, err)
	assert.Equal(t, "azureml://registries/reg/environments/env/versions/1", details.ID)
	assert.Equal(t, "env", details.Name)
}

func TestGetAssetNotFound(t *testing.T) {
	c := &Client{Bin: fakeBin(t, "", "ERROR: Could not find asset env with version 1", 1)}
	_, err := c.GetAsset(context.Background(), "environment", "env", "1", "reg")
	require.Error(t, err)
	assert.True(t, apierr.IsErrCode(err, apierr.ErrCodeAssetNotFound))
}

func TestGetAssetCommandFailure(t *testing.T) {
	c := &Client{Bin: fakeBin(t, "", "ERROR: authentication failed, Bearer abc.def", 1)}
	_, err := c.GetAsset(context.Background(), "environment", "env", "1", "reg")
	require.Error(t, err)
	assert.True(t, apierr.IsErrCode(err, apierr.ErrCodeExternalCommand))

	info := apierr.ErrorInfo{}
	require.ErrorAs(t, err, &info)
	assert.NotContains(t, info.Detail, "Bearer")
}

func TestListVersions(t *testing.T) {
	c := &Client{Bin: fakeBin(t, `[{"version":"3"},{"version":"2"},{"version":"1"}]`, "", 0)}
	versions, err := c.ListVersions(context.Background(), "environment", "env", "reg")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, versions)
}

func TestCreateArgs(t *testing.T) {
	c := &Client{SubscriptionID: "sub-1", Debug: true}
	args := c.createArgs("component", CreateOptions{
		SpecFile:      "spec.yaml",
		RegistryName:  "myreg",
		Version:       "1.0.1-rc1",
		ResourceGroup: "rg",
		Workspace:     "ws",
	})
	assert.Equal(t, []string{
		"ml", "component", "create",
		"--file", "spec.yaml",
		"--registry-name", "myreg",
		"--version", "1.0.1-rc1",
		"--subscription", "sub-1",
		"--resource-group", "rg",
		"--workspace", "ws",
		"--debug",
	}, args)
}

func TestCreateAssetFailure(t *testing.T) {
	c := &Client{Bin: fakeBin(t, "", "ERROR: quota exceeded", 1)}
	err := c.CreateAsset(context.Background(), "model", CreateOptions{
		SpecFile:     "spec.yaml",
		RegistryName: "reg",
		Version:      "1",
	})
	require.Error(t, err)
	assert.True(t, apierr.IsErrCode(err, apierr.ErrCodeExternalCommand))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Authorization: ", Sanitize("Authorization: Bearer abc.def.ghi"))
	assert.Equal(t, "no secrets here", Sanitize("no secrets here"))
}
