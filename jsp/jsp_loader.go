package jsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
)

type WorkPair struct {
	Machine int
	Delay   int
}

// Instance is the raw content of a JSPLIB file, optionally annotated by the catalog.
type Instance struct {
	Name     string       `json:"name"`
	Jobs     int          `json:"jobs"`
	Machines int          `json:"machines"`
	Optimum  int          `json:"optimum"`
	Path     string       `json:"path"`
	Work     [][]WorkPair `json:"work"`
}

// Parse reads the standard format: a "jobs machines" header followed by one line of
// alternating machine/duration pairs per job. Lines starting with '#' are ignored.
func Parse(r io.Reader) (*Instance, error) {
	instance := &Instance{}
	reader := bufio.NewReader(r)
	header := false
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		lineNo++
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] != '#' {
			splits := bytes.Fields(line)
			if !header {
				if len(splits) < 2 {
					return nil, fmt.Errorf("line %d: expected job and machine counts", lineNo)
				}
				var herr error
				if instance.Jobs, herr = atoi(splits[0]); herr != nil {
					return nil, fmt.Errorf("line %d: job count: %w", lineNo, herr)
				}
				if instance.Machines, herr = atoi(splits[1]); herr != nil {
					return nil, fmt.Errorf("line %d: machine count: %w", lineNo, herr)
				}
				header = true
			} else if len(instance.Work) < instance.Jobs {
				if len(splits)%2 != 0 {
					return nil, fmt.Errorf("line %d: odd number of fields", lineNo)
				}
				work := make([]WorkPair, 0, len(splits)/2)
				for j := 0; j < len(splits); j += 2 {
					machine, merr := atoi(splits[j])
					if merr != nil {
						return nil, fmt.Errorf("line %d: machine: %w", lineNo, merr)
					}
					delay, derr := atoi(splits[j+1])
					if derr != nil {
						return nil, fmt.Errorf("line %d: duration: %w", lineNo, derr)
					}
					work = append(work, WorkPair{Machine: machine, Delay: delay})
				}
				instance.Work = append(instance.Work, work)
			}
		}
		if err == io.EOF {
			break
		}
	}
	if !header {
		return nil, fmt.Errorf("missing header line")
	}
	if len(instance.Work) != instance.Jobs {
		return nil, fmt.Errorf("expected %d job lines, got %d", instance.Jobs, len(instance.Work))
	}
	return instance, nil
}

// LoadFile parses the instance stored at path and names it after the file.
func LoadFile(path string) (*Instance, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	instance, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	instance.Name = filepath.Base(path)
	instance.Path = path
	return instance, nil
}

// LoadCatalog reads a JSPLIB checkout: root/instances.json lists every instance with its
// known optimum and a path relative to root.
func LoadCatalog(root string) ([]*Instance, error) {
	fileBytes, err := os.ReadFile(filepath.Join(root, "instances.json"))
	if err != nil {
		return nil, err
	}
	var instances []*Instance
	if err := json.Unmarshal(fileBytes, &instances); err != nil {
		return nil, fmt.Errorf("instances.json: %w", err)
	}
	for _, instance := range instances {
		loaded, err := LoadFile(filepath.Join(root, instance.Path))
		if err != nil {
			return nil, err
		}
		if loaded.Jobs != instance.Jobs || loaded.Machines != instance.Machines {
			return nil, fmt.Errorf("%s: catalog says %dx%d, file says %dx%d", instance.Name,
				instance.Jobs, instance.Machines, loaded.Jobs, loaded.Machines)
		}
		instance.Work = loaded.Work
	}
	return instances, nil
}

// LoadRandom builds a square instance in which every job visits every machine once.
func LoadRandom(jobs, machines int, rng *rand.Rand) *Instance {
	work := make([][]WorkPair, jobs)
	for j := 0; j < jobs; j++ {
		job := make([]WorkPair, machines)
		for m := 0; m < machines; m++ {
			job[m] = WorkPair{m, rng.IntN(200) + 20}
		}
		rng.Shuffle(len(job), func(i, j int) {
			job[i], job[j] = job[j], job[i]
		})
		work[j] = job
	}
	return &Instance{
		Name:     fmt.Sprintf("rand-%dx%d", jobs, machines),
		Jobs:     jobs,
		Machines: machines,
		Work:     work,
	}
}

func atoi(field []byte) (int, error) {
	return strconv.Atoi(string(field))
}
