package router

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
)

// RunCommandLoop reads newline-delimited commands from in and mutates
// flags accordingly. An empty line requests shutdown: the loop returns and
// the caller should proceed to tear the router down. Unrecognised commands
// are logged and ignored; the loop keeps running.
func RunCommandLoop(in io.Reader, flags *FlagStore) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			log.Println("router: quit command received")
			return
		}
		if err := dispatchCommand(line, flags); err != nil {
			log.Printf("router: command %q: %v", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("router: reading stdin: %v", err)
	}
}

func dispatchCommand(line string, flags *FlagStore) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "list":
		cur := flags.Load()
		ids := make([]int64, 0, len(cur.BatteryIDs))
		for id := range cur.BatteryIDs {
			ids = append(ids, id)
		}
		fmt.Printf("db-store=%v iot-ticket=%v battery-demo=%v battery-ids=%v\n",
			cur.DBStorageOn, cur.IoTTicketOn, cur.BatteryDemoOn, ids)
		return nil
	case "db-store":
		return setBool(fields, flags, func(f FeatureFlags, v bool) FeatureFlags { f.DBStorageOn = v; return f })
	case "iot-ticket":
		return setBool(fields, flags, func(f FeatureFlags, v bool) FeatureFlags { f.IoTTicketOn = v; return f })
	case "battery-demo":
		return dispatchBatteryDemo(fields, flags)
	default:
		return fmt.Errorf("unknown command")
	}
}

func setBool(fields []string, flags *FlagStore, apply func(FeatureFlags, bool) FeatureFlags) error {
	if len(fields) != 2 {
		return fmt.Errorf("expected on|off")
	}
	v, err := parseOnOff(fields[1])
	if err != nil {
		return err
	}
	flags.Store(func(f FeatureFlags) FeatureFlags { return apply(f, v) })
	return nil
}

func dispatchBatteryDemo(fields []string, flags *FlagStore) error {
	if len(fields) < 2 {
		return fmt.Errorf("expected on|off|add <id>...|remove <id>...")
	}
	switch fields[1] {
	case "on", "off":
		v, err := parseOnOff(fields[1])
		if err != nil {
			return err
		}
		flags.Store(func(f FeatureFlags) FeatureFlags { f.BatteryDemoOn = v; return f })
		return nil
	case "add", "remove":
		ids, err := parseIDs(fields[2:])
		if err != nil {
			return err
		}
		add := fields[1] == "add"
		flags.Store(func(f FeatureFlags) FeatureFlags {
			for _, id := range ids {
				if add {
					f.BatteryIDs[id] = struct{}{}
				} else {
					delete(f.BatteryIDs, id)
				}
			}
			return f
		})
		return nil
	default:
		return fmt.Errorf("unknown battery-demo subcommand %q", fields[1])
	}
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", s)
	}
}

func parseIDs(fields []string) ([]int64, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("expected at least one id")
	}
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", f, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
