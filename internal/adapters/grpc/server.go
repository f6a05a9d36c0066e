package grpc

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/typeb/familyhub/internal/application"
)

// FamilyInternalService is the service-to-service surface: token validation,
// membership checks, and key discovery for sibling services.
type FamilyInternalService interface {
	ValidateToken(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CheckMembership(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetPublicKeys(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

type FamilyInternalServer struct {
	service *application.Service
}

func NewFamilyInternalServer(service *application.Service) *FamilyInternalServer {
	return &FamilyInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc FamilyInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: "typeb.family.v1.FamilyInternalService",
		HandlerType: (*FamilyInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: "ValidateToken",
				Handler:    validateTokenHandler(svc),
			},
			{
				MethodName: "CheckMembership",
				Handler:    checkMembershipHandler(svc),
			},
			{
				MethodName: "GetPublicKeys",
				Handler:    getPublicKeysHandler(svc),
			},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "contracts/proto/family/v1/family_internal.proto",
	}, svc)
}

func (s *FamilyInternalServer) ValidateToken(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	tokenVal := req.GetFields()["token"]
	if tokenVal == nil {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}
	token := tokenVal.GetStringValue()
	if token == "" {
		return nil, status.Error(codes.InvalidArgument, "missing token")
	}

	claims, err := s.service.ValidateToken(ctx, token)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}

	resp, err := structpb.NewStruct(map[string]any{
		"valid":      true,
		"user_id":    claims.UserID.String(),
		"email":      claims.Email,
		"role":       claims.Role,
		"session_id": claims.SessionID.String(),
		"expires_at": claims.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *FamilyInternalServer) CheckMembership(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	familyID, err := uuid.Parse(req.GetFields()["family_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid family_id")
	}
	userID, err := uuid.Parse(req.GetFields()["user_id"].GetStringValue())
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "invalid user_id")
	}

	member, role, err := s.service.CheckMembership(ctx, familyID, userID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "check membership: %v", err)
	}

	resp, err := structpb.NewStruct(map[string]any{
		"member": member,
		"role":   role,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func (s *FamilyInternalServer) GetPublicKeys(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	keys, err := s.service.PublicJWKs()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "get keys: %v", err)
	}
	items := make([]any, 0, len(keys))
	for _, key := range keys {
		items = append(items, map[string]any(key))
	}
	resp, err := structpb.NewStruct(map[string]any{
		"keys": items,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func validateTokenHandler(svc FamilyInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.ValidateToken(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/typeb.family.v1.FamilyInternalService/ValidateToken",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.ValidateToken(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func checkMembershipHandler(svc FamilyInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.CheckMembership(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/typeb.family.v1.FamilyInternalService/CheckMembership",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.CheckMembership(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}

func getPublicKeysHandler(svc FamilyInternalService) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &emptypb.Empty{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return svc.GetPublicKeys(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/typeb.family.v1.FamilyInternalService/GetPublicKeys",
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*emptypb.Empty)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return svc.GetPublicKeys(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
