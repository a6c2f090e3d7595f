package mounts

// Checkpoints scans the mount table for entries whose source equals the
// given dataset source and whose options carry a cp= checkpoint id,
// returning each such mount's destination path (spec §4.2, NILFS2).
func Checkpoints(source string) ([]string, error) {
	raw, err := readMountTable()
	if err != nil {
		return nil, err
	}

	var roots []string
	for _, m := range raw {
		if m.Source != source {
			continue
		}
		if hasCheckpointOption(m.Options) {
			roots = append(roots, m.Target)
		}
	}
	return roots, nil
}

func hasCheckpointOption(options []string) bool {
	for _, opt := range options {
		if len(opt) > 3 && opt[:3] == "cp=" {
			return true
		}
	}
	return false
}
