package manifest

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sync regenerates every generated artifact from the manifest: the runtime
// registry, the install script's package-list block and the three README
// blocks. Only files the tool owns are touched. Returns the paths written.
func Sync(root string, m *Manifest) ([]string, error) {
	var written []string

	registry, err := RenderRegistry(m)
	if err != nil {
		return written, err
	}
	registryPath := filepath.Join(root, filepath.FromSlash(RegistryFile))
	if err := writeIfChanged(registryPath, registry); err != nil {
		return written, err
	}
	written = append(written, RegistryFile)

	installPath := filepath.Join(root, InstallFile)
	if err := replaceFileBlocks(installPath, []blockSpec{
		{InstallBlockBegin, InstallBlockEnd, RenderInstallBlock(m)},
	}); err != nil {
		return written, fmt.Errorf("%s: %w", InstallFile, err)
	}
	written = append(written, InstallFile)

	readmePath := filepath.Join(root, ReadmeFile)
	if err := replaceFileBlocks(readmePath, []blockSpec{
		{ReadmeWhatsInsideBegin, ReadmeWhatsInsideEnd, RenderWhatsInsideBlock(m)},
		{ReadmeInstallerCountsBegin, ReadmeInstallerCountsEnd, RenderInstallerCountsBlock(m)},
		{ReadmeIndexBegin, ReadmeIndexEnd, RenderIndexBlock(m)},
	}); err != nil {
		return written, fmt.Errorf("%s: %w", ReadmeFile, err)
	}
	written = append(written, ReadmeFile)

	return written, nil
}

type blockSpec struct {
	begin, end, block string
}

func replaceFileBlocks(path string, blocks []blockSpec) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	text := string(data)
	for _, b := range blocks {
		text, err = ReplaceBlock(text, b.begin, b.end, b.block)
		if err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func writeIfChanged(path string, data []byte) error {
	current, err := os.ReadFile(path)
	if err == nil && string(current) == string(data) {
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}
