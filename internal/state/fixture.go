package state

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a robot and world state stored on disk.
type Fixture struct {
	Robot   *RobotState   `yaml:"robot"`
	Objects []WorldObject `yaml:"objects"`
}

func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading world fixture: %w", err)
	}
	fx, err := ParseFixture(data)
	if err != nil {
		return nil, fmt.Errorf("loading world fixture: %w", err)
	}
	return fx, nil
}

func ParseFixture(data []byte) (*Fixture, error) {
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(fx.Objects))
	for i, obj := range fx.Objects {
		if err := obj.Validate(); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		if _, dup := seen[obj.ID]; dup {
			return nil, fmt.Errorf("duplicate object name: %s", obj.ID)
		}
		seen[obj.ID] = struct{}{}
	}
	return &fx, nil
}

func (f *Fixture) World() WorldState {
	return WorldState{Objects: f.Objects}
}

// Apply pushes the fixture into the adapter.
func (f *Fixture) Apply(a *Adapter) {
	if f.Robot != nil {
		a.PushRobot(*f.Robot)
	}
	a.PushWorld(f.World())
}
