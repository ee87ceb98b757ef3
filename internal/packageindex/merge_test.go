package packageindex

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/sketchctl/internal/board"
)

func release(version string, boards ...string) PlatformRelease {
	rel := PlatformRelease{Name: "Vendor AVR " + version, Architecture: "avr", Version: version}
	for _, b := range boards {
		rel.Boards = append(rel.Boards, board.Summary{Name: b})
	}
	return rel
}

func doc(pkg string, releases ...PlatformRelease) *Document {
	return &Document{Packages: []Package{{Name: pkg, Platforms: releases}}}
}

func TestMerger_VersionsAcrossDocuments(t *testing.T) {
	t.Parallel()

	m := NewMerger(nil)
	m.AddDocument(doc("vendor", release("1.8.3", "Uno", "Nano")))
	m.AddDocument(doc("vendor", release("1.8.2", "Uno", "Duemilanove")))

	platforms := m.Platforms()
	require.Len(t, platforms, 1)
	p := platforms[0]
	assert.Equal(t, board.PlatformKey{Package: "vendor", Architecture: "avr"}, p.Key())
	assert.Equal(t, []string{"1.8.2", "1.8.3"}, p.Versions)
	assert.Equal(t, "1.8.3", p.Version)
	assert.Equal(t, "Vendor AVR 1.8.3", p.Name)
	assert.Equal(t, []board.Summary{{Name: "Uno"}, {Name: "Nano"}}, p.Boards, "boards come from the highest version only")
}

func TestMerger_BoardsFollowHighestAfterEachInsertion(t *testing.T) {
	t.Parallel()

	m := NewMerger(nil)
	m.AddDocument(doc("vendor", release("1.8.2", "Old")))
	assert.Equal(t, []board.Summary{{Name: "Old"}}, m.Platforms()[0].Boards)

	m.AddDocument(doc("vendor", release("1.10.0", "New")))
	assert.Equal(t, []board.Summary{{Name: "New"}}, m.Platforms()[0].Boards)

	m.AddDocument(doc("vendor", release("1.9.0", "Middle")))
	p := m.Platforms()[0]
	assert.Equal(t, []string{"1.8.2", "1.9.0", "1.10.0"}, p.Versions)
	assert.Equal(t, []board.Summary{{Name: "New"}}, p.Boards)

	// A repeated version is not listed twice.
	m.AddDocument(doc("vendor", release("1.9.0", "Middle")))
	assert.Len(t, m.Platforms()[0].Versions, 3)
}

func TestMerger_InstalledOverridesOnlyInstalledState(t *testing.T) {
	t.Parallel()

	m := NewMerger(nil)
	m.AddDocument(doc("arduino", release("1.8.6", "Uno")))
	m.AddInstalled(Installed{PackageName: "arduino", Architecture: "avr", Version: "1.8.3", RootBoardPath: "/ide/hardware/arduino/avr", Default: true})
	m.AddInstalled(Installed{PackageName: "arduino", Architecture: "avr", Version: "1.8.5", RootBoardPath: "/sketchbook/hardware/arduino/avr"})
	m.AddInstalled(Installed{PackageName: "arduino", Architecture: "avr", Version: "1.8.6", RootBoardPath: "/packages/arduino/hardware/avr/1.8.6"})

	platforms := m.Platforms()
	require.Len(t, platforms, 1)
	p := platforms[0]
	assert.Equal(t, "1.8.6", p.InstalledVersion)
	assert.Equal(t, "/packages/arduino/hardware/avr/1.8.6", p.RootBoardPath)
	assert.False(t, p.DefaultPlatform)
	assert.Equal(t, []string{"1.8.6"}, p.Versions)
	assert.Equal(t, "Vendor AVR 1.8.6", p.Name)
	assert.True(t, p.Installed())
}

func TestMerger_InstalledWithoutIndex(t *testing.T) {
	t.Parallel()

	m := NewMerger(nil)
	m.AddInstalled(Installed{PackageName: "custom", Architecture: "esp", Name: "My ESP", Version: "0.1", RootBoardPath: "/hw/custom/esp"})
	m.AddDocument(doc("other", release("2.0.0")))

	platforms := m.Platforms()
	require.Len(t, platforms, 2)
	assert.Equal(t, "custom:esp", platforms[0].Key().String())
	assert.Equal(t, "My ESP", platforms[0].Name)
	assert.Empty(t, platforms[0].Versions)
	assert.Empty(t, platforms[0].Boards)
	assert.False(t, platforms[1].Installed())
}

func TestMerger_SkipsIncompleteReleases(t *testing.T) {
	t.Parallel()

	m := NewMerger(nil)
	m.AddDocument(nil)
	m.AddDocument(&Document{Packages: []Package{
		{Name: "", Platforms: []PlatformRelease{release("1.0.0")}},
		{Name: "vendor", Platforms: []PlatformRelease{{Version: "1.0.0"}}},
	}})
	assert.Empty(t, m.Platforms())
}

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	versions := []string{"1.10.0", "1.8.10", "1.8.2", "2.0.0-rc1", "2.0.0", "weird", "1.9"}
	slices.SortFunc(versions, CompareVersions)
	assert.Equal(t, []string{"weird", "1.8.2", "1.8.10", "1.9", "1.10.0", "2.0.0-rc1", "2.0.0"}, versions)

	assert.Equal(t, 0, CompareVersions("1.0.0", "v1.0.0"))
	assert.Negative(t, CompareVersions("abc", "abd"))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	d, err := Decode(strings.NewReader(`{"packages":[{"name":"arduino","maintainer":"Arduino","platforms":[
		{"name":"Arduino AVR Boards","architecture":"avr","version":"1.8.3","category":"Arduino","boards":[{"name":"Arduino Uno"}]}
	],"tools":[]}]}`))
	require.NoError(t, err)
	require.Len(t, d.Packages, 1)
	assert.Equal(t, "Arduino", d.Packages[0].Maintainer)
	assert.Equal(t, []board.Summary{{Name: "Arduino Uno"}}, d.Packages[0].Platforms[0].Boards)

	_, err = Decode(strings.NewReader(`{"packages":`))
	assert.Error(t, err)
}
