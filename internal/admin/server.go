package admin

import (
	"context"
	"log/slog"

	"github.com/packetcraft-inc/meshnode"
	"github.com/packetcraft-inc/meshnode/internal/localconfig"
	"github.com/packetcraft-inc/meshnode/internal/netmgmt"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server implements the MeshNodeAdmin service against a single Node.
type Server struct {
	node *localconfig.Node
	log  *slog.Logger
}

// New wraps node for gRPC introspection and bench control.
func New(node *localconfig.Node) *Server {
	return &Server{node: node, log: slog.Default().With("component", "admin")}
}

func (s *Server) DumpAddressTable(_ context.Context, _ *DumpAddressTableRequest) (*DumpAddressTableResponse, error) {
	snap := s.node.AddressSnapshot()
	resp := &DumpAddressTableResponse{}
	for i, e := range snap.NonVirtual {
		if e.RefcountPublish == 0 && e.RefcountSubscribe == 0 {
			continue
		}
		resp.Rows = append(resp.Rows, AddressRow{
			Slot:              i,
			Address:           uint16(e.Address),
			RefcountPublish:   e.RefcountPublish,
			RefcountSubscribe: e.RefcountSubscribe,
		})
	}
	for i, e := range snap.Virtual {
		if e.RefcountPublish == 0 && e.RefcountSubscribe == 0 {
			continue
		}
		resp.Rows = append(resp.Rows, AddressRow{
			Slot:              i,
			Address:           uint16(e.Address),
			Virtual:           true,
			Label:             e.Label.String(),
			RefcountPublish:   e.RefcountPublish,
			RefcountSubscribe: e.RefcountSubscribe,
		})
	}
	return resp, nil
}

func (s *Server) DumpKeyTable(_ context.Context, _ *DumpKeyTableRequest) (*DumpKeyTableResponse, error) {
	snap := s.node.KeySnapshot()
	resp := &DumpKeyTableResponse{}
	for _, k := range snap.NetKeys {
		if !k.Occupied {
			continue
		}
		resp.NetKeys = append(resp.NetKeys, NetKeyRow{
			Index:        k.Index,
			NewAvailable: k.NewAvailable,
			Refresh:      k.Refresh.String(),
			NodeIdentity: nodeIdentityString(int(k.NodeIdentity)),
		})
	}
	for _, a := range snap.AppKeys {
		if !a.Occupied {
			continue
		}
		resp.AppKeys = append(resp.AppKeys, AppKeyRow{
			Index:        a.Index,
			NewAvailable: a.NewAvailable,
			Bound:        a.BoundNetSlot >= 0,
			BoundNetSlot: a.BoundNetSlot,
		})
	}
	return resp, nil
}

func (s *Server) DumpModelTable(_ context.Context, req *DumpModelTableRequest) (*DumpModelTableResponse, error) {
	resp := &DumpModelTableResponse{}
	for _, key := range req.Instances {
		pub, err := s.node.Publication(key)
		if err != nil {
			return nil, toGRPCError(err)
		}
		used, total, err := s.node.SubSize(key)
		if err != nil {
			return nil, toGRPCError(err)
		}
		var addr meshnode.Address
		if pub.AddrSlot >= 0 {
			if a, _, perr := s.node.PublishAddress(key); perr == nil {
				addr = a
			}
		}
		resp.Rows = append(resp.Rows, ModelRow{
			Element:        key.Element,
			ModelID:        key.ModelID,
			IsSIG:          key.IsSIG,
			PublishAddress: uint16(addr),
			SubscribeUsed:  used,
			SubscribeTotal: total,
		})
	}
	return resp, nil
}

func (s *Server) DumpSequenceState(_ context.Context, req *DumpSequenceStateRequest) (*DumpSequenceStateResponse, error) {
	resp := &DumpSequenceStateResponse{}
	for elem := 0; elem < req.Elements; elem++ {
		seq, err := s.node.Seq(elem)
		if err != nil {
			return nil, toGRPCError(err)
		}
		resp.Rows = append(resp.Rows, SequenceRow{Element: elem, Seq: seq})
	}
	return resp, nil
}

func (s *Server) DumpNetworkManagementState(_ context.Context, _ *DumpNetworkManagementStateRequest) (*DumpNetworkManagementStateResponse, error) {
	iv, inProgress := s.node.IV()
	return &DumpNetworkManagementStateResponse{IVIndex: iv, IVUpdateInProgress: inProgress}, nil
}

func (s *Server) InjectBeacon(_ context.Context, req *InjectBeaconRequest) (*InjectBeaconResponse, error) {
	s.log.Debug("injecting beacon", "net_key_index", req.NetKeyIndex, "iv_index", req.IVIndex)
	event := s.node.HandleBeacon(netmgmt.Beacon{
		NetKeyIndex:    req.NetKeyIndex,
		NewKeyUsed:     req.NewKeyUsed,
		IVIndex:        req.IVIndex,
		KeyRefreshFlag: req.KeyRefreshFlag,
		IVUpdateFlag:   req.IVUpdateFlag,
	})
	if event != nil {
		s.log.Info("iv index advanced", "new_iv", event.NewIV)
	}
	return &InjectBeaconResponse{}, nil
}

func (s *Server) FireGuardTimer(_ context.Context, req *FireGuardTimerRequest) (*FireGuardTimerResponse, error) {
	var event *meshnode.IvUpdated
	switch req.Timer {
	case GuardTimerIVUpdate:
		event = s.node.IVUpdateGuardFired()
	case GuardTimerIVRecover:
		s.node.IVRecoverGuardFired()
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown guard timer %d", req.Timer)
	}
	if event != nil {
		s.log.Info("iv index advanced", "new_iv", event.NewIV)
	}
	return &FireGuardTimerResponse{}, nil
}

func nodeIdentityString(v int) string {
	switch v {
	case 0:
		return "not-supported"
	case 1:
		return "stopped"
	case 2:
		return "running"
	default:
		return "unknown"
	}
}

func toGRPCError(err error) error {
	return status.Error(codes.FailedPrecondition, err.Error())
}
