// Package simulator implements a deterministic in-process provisioner. It
// derives every output from the declared properties, so re-running the same
// topology yields an identical run report. Used by dry runs and tests.
package simulator

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/topoctl/topoctl/pkg/graph"
	"github.com/topoctl/topoctl/pkg/names"
	"github.com/topoctl/topoctl/pkg/provisioner"
)

func init() {
	provisioner.Register("simulator", NewProvisioner)
}

// Provisioner simulates resource provisioning without any cloud API calls.
type Provisioner struct {
	// failKind, when set, makes every Provision call for that kind fail.
	// Used to exercise failure propagation from the CLI.
	failKind graph.Kind
}

// NewProvisioner creates a new simulator.
func NewProvisioner(config map[string]string) (provisioner.Provisioner, error) {
	return &Provisioner{
		failKind: graph.Kind(config["fail_kind"]),
	}, nil
}

func (p *Provisioner) Name() string {
	return "simulator"
}

// Provision derives deterministic outputs for the given kind and properties.
func (p *Provisioner) Provision(ctx context.Context, kind graph.Kind, properties map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.failKind != "" && kind == p.failKind {
		return nil, fmt.Errorf("simulated provisioning failure for kind %s", kind)
	}

	id := resourceID(kind, properties)
	switch kind {
	case graph.KindNetwork:
		return map[string]interface{}{
			"id":   id,
			"cidr": properties["cidr"],
		}, nil

	case graph.KindSubnet:
		return map[string]interface{}{
			"id":   id,
			"cidr": properties["cidr"],
		}, nil

	case graph.KindCluster:
		digest := fingerprint(kind, properties)
		return map[string]interface{}{
			"id":       id,
			"endpoint": fmt.Sprintf("https://%s.clusters.sim.internal:6443", digest),
			"caCert":   base64.StdEncoding.EncodeToString([]byte("sim-ca-" + digest)),
			"token":    "sim-token-" + digest,
		}, nil

	case graph.KindNodePool:
		return map[string]interface{}{
			"id": id,
		}, nil

	case graph.KindDeployment:
		return map[string]interface{}{
			"id": id,
		}, nil

	case graph.KindService:
		// A simulated load balancer reports a list of ingress endpoints.
		// The service endpoint is the first entry; the standby is not
		// exposed as an output.
		digest := fingerprint(kind, properties)
		ingress := []string{
			fmt.Sprintf("%s.lb.sim.internal", digest),
			fmt.Sprintf("%s-standby.lb.sim.internal", digest),
		}
		return map[string]interface{}{
			"id":       id,
			"endpoint": ingress[0],
		}, nil

	case graph.KindConfigFile:
		return map[string]interface{}{
			"id":      id,
			"content": properties["content"],
		}, nil

	default:
		return nil, fmt.Errorf("unsupported resource kind %q", kind)
	}
}

// Destroy is a no-op for simulated resources.
func (p *Provisioner) Destroy(ctx context.Context, kind graph.Kind, properties map[string]interface{}) error {
	return ctx.Err()
}

// resourceID derives a stable resource identifier from kind and properties.
// The friendly adjective-noun segment makes simulated IDs readable in plans
// and state; the digest suffix keeps them unique.
func resourceID(kind graph.Kind, properties map[string]interface{}) string {
	digest := fingerprint(kind, properties)
	return fmt.Sprintf("sim-%s-%s-%s", kind, names.Generate(string(kind), digest), digest[:6])
}

// fingerprint hashes the kind and canonicalized properties.
func fingerprint(kind graph.Kind, properties map[string]interface{}) string {
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(kind))
	for _, k := range keys {
		fmt.Fprintf(&b, "|%s=%v", k, properties[k])
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])[:12]
}

// Ensure we implement the Provisioner interface
var _ provisioner.Provisioner = (*Provisioner)(nil)
