package billing

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName               = "billing.BillingService"
	createBillingAccountRoute = "/billing.BillingService/CreateBillingAccount"
)

// AccountRequest is the CreateBillingAccount request payload.
type AccountRequest struct {
	PatientID string
	Name      string
	Email     string
}

// AccountResponse is the CreateBillingAccount response payload.
type AccountResponse struct {
	AccountID string
	Status    string
}

func (r AccountRequest) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"patientId": r.PatientID,
		"name":      r.Name,
		"email":     r.Email,
	})
}

func accountRequestFromStruct(s *structpb.Struct) AccountRequest {
	f := s.GetFields()
	return AccountRequest{
		PatientID: f["patientId"].GetStringValue(),
		Name:      f["name"].GetStringValue(),
		Email:     f["email"].GetStringValue(),
	}
}

func (r AccountResponse) toStruct() (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"accountId": r.AccountID,
		"status":    r.Status,
	})
}

func accountResponseFromStruct(s *structpb.Struct) AccountResponse {
	f := s.GetFields()
	return AccountResponse{
		AccountID: f["accountId"].GetStringValue(),
		Status:    f["status"].GetStringValue(),
	}
}

// BillingServiceServer is the server API for the billing service.
type BillingServiceServer interface {
	CreateBillingAccount(ctx context.Context, req AccountRequest) (AccountResponse, error)
}

// RegisterBillingServiceServer registers srv on s.
func RegisterBillingServiceServer(s grpc.ServiceRegistrar, srv BillingServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

func createBillingAccountHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		resp, err := srv.(BillingServiceServer).CreateBillingAccount(ctx, accountRequestFromStruct(req.(*structpb.Struct)))
		if err != nil {
			return nil, err
		}
		out, err := resp.toStruct()
		if err != nil {
			return nil, fmt.Errorf("encode response: %w", err)
		}
		return out, nil
	}
	if interceptor == nil {
		return handler(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: createBillingAccountRoute,
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BillingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateBillingAccount",
			Handler:    createBillingAccountHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "billing.proto",
}
