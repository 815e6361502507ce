package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovnexplorer/ovnexplorer/internal/config"
	"github.com/ovnexplorer/ovnexplorer/internal/model"
)

func TestBuildCommandsDefaults(t *testing.T) {
	cmds, err := BuildCommands(config.OVNConfig{JSONFormat: true})
	require.NoError(t, err)
	require.Len(t, cmds, len(model.AllKinds()))
	assert.Equal(t, []string{"ovn-nbctl", "--format=json", "list", "Logical_Switch"}, cmds[model.KindSwitch])
	assert.Equal(t, []string{"ovn-nbctl", "--format=json", "list", "Logical_Router_Port"}, cmds[model.KindRouterPort])

	plain, err := BuildCommands(config.OVNConfig{CommandPrefix: "ovn-nbctl --db=tcp:10.0.0.1:6641"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ovn-nbctl", "--db=tcp:10.0.0.1:6641", "list", "ACL"}, plain[model.KindACL])
}

func TestBuildCommandsOverrides(t *testing.T) {
	cmds, err := BuildCommands(config.OVNConfig{
		JSONFormat: true,
		Commands:   map[string]string{"lsp": `ovn-nbctl --columns="_uuid,name" list Logical_Switch_Port`},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ovn-nbctl", "--columns=_uuid,name", "list", "Logical_Switch_Port"}, cmds[model.KindPort])

	_, err = BuildCommands(config.OVNConfig{Commands: map[string]string{"bogus": "x"}})
	assert.ErrorIs(t, err, model.ErrUnknownKind)

	_, err = BuildCommands(config.OVNConfig{Commands: map[string]string{"acl": "   "}})
	assert.Error(t, err)
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{"a", "b c", "d"}, splitArgs(`a "b c" d`))
	assert.Equal(t, []string{"x", "it's"}, splitArgs(`x "it's"`))
	assert.Equal(t, []string{""}, splitArgs(`''`))
	assert.Empty(t, splitArgs("  \t "))
}

func TestParseKinds(t *testing.T) {
	all, err := ParseKinds(nil)
	require.NoError(t, err)
	assert.Equal(t, model.AllKinds(), all)

	kinds, err := ParseKinds([]string{"Logical_Switch", "lsp", "switch"})
	require.NoError(t, err)
	assert.Equal(t, []model.Kind{model.KindSwitch, model.KindPort}, kinds)

	_, err = ParseKinds([]string{"chassis"})
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestOptionsFromConfig(t *testing.T) {
	opts, err := OptionsFromConfig(config.OVNConfig{
		JSONFormat:         true,
		Concurrency:        2,
		LoadCacheOnStartup: true,
		Kinds:              []string{"acl"},
	})
	require.NoError(t, err)
	assert.Equal(t, []model.Kind{model.KindACL}, opts.Kinds)
	assert.Equal(t, 2, opts.Concurrency)
	assert.True(t, opts.LoadCacheOnStartup)
	assert.Len(t, opts.Commands, len(model.AllKinds()))
}
