package xserver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/devtreehq/devtree/internal/hierarchy"
	"github.com/devtreehq/devtree/internal/logger"
)

// xinputBackend drives the hierarchy through the xinput(1) command line
// tool. Each hierarchy change is its own process invocation, so batches are
// sequential: a failure partway through leaves the earlier ops applied.
type xinputBackend struct{}

func newXinputBackend() (hierarchy.Service, error) {
	if _, err := exec.LookPath("xinput"); err != nil {
		return nil, fmt.Errorf("xinput not found, install the xinput utility: %w", hierarchy.ErrServiceUnavailable)
	}
	if os.Getenv("DISPLAY") == "" {
		return nil, fmt.Errorf("DISPLAY is not set: %w", hierarchy.ErrServiceUnavailable)
	}
	return &xinputBackend{}, nil
}

func (x *xinputBackend) Devices(ctx context.Context) ([]hierarchy.Device, error) {
	cmd := exec.CommandContext(ctx, "xinput", "list")
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			logger.Errorf("xinput list: %s", strings.TrimSpace(string(output)))
		}
		return nil, fmt.Errorf("xinput list failed: %v: %w", err, hierarchy.ErrServiceUnavailable)
	}
	return parseListOutput(string(output))
}

func (x *xinputBackend) ChangeHierarchy(ctx context.Context, ops []hierarchy.ChangeOp) error {
	for i, op := range ops {
		args, err := opArgs(op)
		if err != nil {
			return &hierarchy.ProtocolError{Index: i, Op: op, Err: err}
		}
		logger.Debugf("xinput %s", strings.Join(args, " "))
		cmd := exec.CommandContext(ctx, "xinput", args...)
		if output, err := cmd.CombinedOutput(); err != nil {
			msg := strings.TrimSpace(string(output))
			if msg == "" {
				msg = err.Error()
			}
			return &hierarchy.ProtocolError{Index: i, Op: op, Err: fmt.Errorf("%s", msg)}
		}
	}
	return nil
}

// SupportsBatch is false: one process per op, no atomicity across them.
func (x *xinputBackend) SupportsBatch() bool {
	return false
}

func (x *xinputBackend) Close() error {
	return nil
}

func opArgs(op hierarchy.ChangeOp) ([]string, error) {
	switch op.Kind {
	case hierarchy.OpAttachSlave:
		return []string{"reattach", strconv.Itoa(op.DeviceID), strconv.Itoa(op.MasterID)}, nil
	case hierarchy.OpDetachSlave:
		return []string{"float", strconv.Itoa(op.DeviceID)}, nil
	case hierarchy.OpAddMaster:
		return []string{"create-master", op.Name}, nil
	case hierarchy.OpRemoveMaster:
		if op.ReturnPointer == 0 && op.ReturnKeyboard == 0 {
			return []string{"remove-master", strconv.Itoa(op.DeviceID), "Floating"}, nil
		}
		return []string{
			"remove-master", strconv.Itoa(op.DeviceID), "AttachToMaster",
			strconv.Itoa(op.ReturnPointer), strconv.Itoa(op.ReturnKeyboard),
		}, nil
	default:
		return nil, fmt.Errorf("unknown op kind %v", op.Kind)
	}
}

// listLineRe matches the id= and bracket tail of one xinput list line, e.g.
//
//	⎡ Virtual core pointer          id=2  [master pointer  (3)]
//	⎜   ↳ USB Optical Mouse         id=9  [slave  pointer  (2)]
//	∼ Wacom Pen                     id=12 [floating slave]
var listLineRe = regexp.MustCompile(`^(.*?)\s+id=(\d+)\s+\[(master|slave|floating)\s+(pointer|keyboard|slave)(?:\s+\((\d+)\))?\]\s*$`)

// nameDecoration strips the tree-drawing prefix xinput puts before names.
var nameDecoration = strings.NewReplacer("⎡", "", "⎜", "", "⎣", "", "↳", "", "∼", "")

// parseListOutput turns `xinput list` output into the flat device list.
// Lines that do not look like device lines are skipped.
func parseListOutput(output string) ([]hierarchy.Device, error) {
	var devices []hierarchy.Device
	for _, line := range strings.Split(output, "\n") {
		m := listLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		role, ok := parseRole(m[3], m[4])
		if !ok {
			logger.Warnf("unrecognized device use %q %q in: %s", m[3], m[4], strings.TrimSpace(line))
			continue
		}
		attachment := 0
		if m[5] != "" {
			attachment, _ = strconv.Atoi(m[5])
		}
		devices = append(devices, hierarchy.Device{
			ID:         id,
			Name:       strings.TrimSpace(nameDecoration.Replace(m[1])),
			Role:       role,
			Attachment: attachment,
		})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices in xinput list output: %w", hierarchy.ErrServiceUnavailable)
	}
	return devices, nil
}

func parseRole(kind, class string) (hierarchy.Role, bool) {
	switch kind {
	case "master":
		if class == "pointer" {
			return hierarchy.MasterPointer, true
		}
		if class == "keyboard" {
			return hierarchy.MasterKeyboard, true
		}
	case "slave":
		if class == "pointer" {
			return hierarchy.SlavePointer, true
		}
		if class == "keyboard" {
			return hierarchy.SlaveKeyboard, true
		}
	case "floating":
		// xinput prints floating devices as "[floating slave]".
		return hierarchy.FloatingSlave, true
	}
	return 0, false
}
