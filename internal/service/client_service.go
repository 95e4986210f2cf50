package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"time"

	"freightdesk/internal/model"
	"freightdesk/internal/repository"

	"github.com/google/uuid"
)

// --- Address DTO ---

type AddressPayload struct {
	AddressType string `json:"address_type"`
	FullAddress string `json:"full_address"`
	IsDefault   bool   `json:"is_default"`
}

type AddressResponse struct {
	ID          uuid.UUID `json:"id"`
	ClientID    uuid.UUID `json:"client_id"`
	AddressType string    `json:"address_type"`
	FullAddress string    `json:"full_address"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// --- Client DTOs ---

type CreateClientRequest struct {
	Code          string           `json:"code" binding:"required"`
	Name          string           `json:"name" binding:"required"`
	TaxCode       string           `json:"tax_code"`
	CompanyName   string           `json:"company_name"`
	ContactPerson string           `json:"contact_person"`
	Phone         string           `json:"phone"`
	Email         string           `json:"email"`
	Addresses     []AddressPayload `json:"addresses"`
}

type UpdateClientRequest struct {
	Name          *string           `json:"name"`
	Status        *string           `json:"status"`
	TaxCode       *string           `json:"tax_code"`
	CompanyName   *string           `json:"company_name"`
	ContactPerson *string           `json:"contact_person"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	IsActive      *bool             `json:"is_active"`
	Addresses     *[]AddressPayload `json:"addresses"` // pointer so nil = not sent, [] = clear all
}

type ClientResponse struct {
	ID            uuid.UUID         `json:"id"`
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	Status        string            `json:"status"`
	TaxCode       string            `json:"tax_code"`
	CompanyName   string            `json:"company_name"`
	ContactPerson string            `json:"contact_person"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email"`
	IsActive      bool              `json:"is_active"`
	Addresses     []AddressResponse `json:"addresses"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, userID string, req CreateClientRequest) (ClientResponse, error)
	UpdateClient(ctx context.Context, userID, id string, req UpdateClientRequest) (ClientResponse, error)
	DeleteClient(ctx context.Context, userID, id string) error
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	GetClients(ctx context.Context, status, search string, page, limit int) ([]ClientResponse, int64, error)
}

// --- Implementation ---

type clientService struct {
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewClientService(clientRepo repository.ClientRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) ClientService {
	return &clientService{clientRepo: clientRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Validation helpers ---

var validClientStatuses = map[string]bool{
	model.ClientStatusActive:    true,
	model.ClientStatusInactive:  true,
	model.ClientStatusSuspended: true,
}

var validAddressTypes = map[string]bool{
	model.AddressTypeBilling:  true,
	model.AddressTypeDelivery: true,
}

func validateAddresses(addresses []AddressPayload) error {
	for i, addr := range addresses {
		if !validAddressTypes[addr.AddressType] {
			return fmt.Errorf("addresses[%d]: address_type must be one of: BILLING, DELIVERY", i)
		}
		if addr.FullAddress == "" {
			return fmt.Errorf("addresses[%d]: full_address is required", i)
		}
	}
	return nil
}

func toAddressModels(clientID uuid.UUID, payloads []AddressPayload) []model.ClientAddress {
	addresses := make([]model.ClientAddress, 0, len(payloads))
	for _, p := range payloads {
		addresses = append(addresses, model.ClientAddress{
			ClientID:    clientID,
			AddressType: p.AddressType,
			FullAddress: p.FullAddress,
			IsDefault:   p.IsDefault,
		})
	}
	return addresses
}

// --- CRUD ---

func (s *clientService) CreateClient(ctx context.Context, userID string, req CreateClientRequest) (ClientResponse, error) {
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return ClientResponse{}, fmt.Errorf("invalid email format")
		}
	}
	if err := validateAddresses(req.Addresses); err != nil {
		return ClientResponse{}, err
	}

	client := &model.Client{
		Code:          req.Code,
		Name:          req.Name,
		Status:        model.ClientStatusActive,
		TaxCode:       req.TaxCode,
		CompanyName:   req.CompanyName,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		IsActive:      true,
		Addresses:     toAddressModels(uuid.Nil, req.Addresses), // GORM fills ClientID on cascade create
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Create(txCtx, client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}
		return s.writeAudit(txCtx, userID, model.ActionCreateClient, client.ID.String(), client.Name, req)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(*client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, userID, id string, req UpdateClientRequest) (ClientResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client ID")
	}

	client, err := s.clientRepo.FindByID(ctx, uid)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("client not found: %w", err)
	}

	if req.Name != nil {
		if *req.Name == "" {
			return ClientResponse{}, fmt.Errorf("name cannot be empty")
		}
		client.Name = *req.Name
	}
	if req.Status != nil {
		if !validClientStatuses[*req.Status] {
			return ClientResponse{}, fmt.Errorf("status must be one of: actif, inactif, suspendu")
		}
		client.Status = *req.Status
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return ClientResponse{}, fmt.Errorf("invalid email format")
		}
		client.Email = *req.Email
	} else if req.Email != nil {
		client.Email = ""
	}
	if req.TaxCode != nil {
		client.TaxCode = *req.TaxCode
	}
	if req.CompanyName != nil {
		client.CompanyName = *req.CompanyName
	}
	if req.ContactPerson != nil {
		client.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.IsActive != nil {
		client.IsActive = *req.IsActive
	}

	if req.Addresses != nil {
		if err := validateAddresses(*req.Addresses); err != nil {
			return ClientResponse{}, err
		}
	}

	// Run update + address replacement in a transaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Update(txCtx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		// Replace addresses if provided (delete-all + re-create strategy)
		if req.Addresses != nil {
			if err := s.clientRepo.DeleteAddressesByClientID(txCtx, uid); err != nil {
				return fmt.Errorf("failed to delete old addresses: %w", err)
			}
			newAddrs := toAddressModels(uid, *req.Addresses)
			if err := s.clientRepo.CreateAddresses(txCtx, newAddrs); err != nil {
				return fmt.Errorf("failed to create addresses: %w", err)
			}
			client.Addresses = newAddrs
		}

		return s.writeAudit(txCtx, userID, model.ActionUpdateClient, client.ID.String(), client.Name, req)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(*client), nil
}

func (s *clientService) DeleteClient(ctx context.Context, userID, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid client ID")
	}

	client, err := s.clientRepo.FindByID(ctx, uid)
	if err != nil {
		return fmt.Errorf("client not found: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.clientRepo.Delete(txCtx, uid); err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		return s.writeAudit(txCtx, userID, model.ActionDeleteClient, client.ID.String(), client.Name, map[string]bool{"deleted": true})
	})
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client ID")
	}
	client, err := s.clientRepo.FindByID(ctx, uid)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("client not found: %w", err)
	}
	return toClientResponse(*client), nil
}

func (s *clientService) GetClients(ctx context.Context, status, search string, page, limit int) ([]ClientResponse, int64, error) {
	clients, total, err := s.clientRepo.List(ctx, status, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clients: %w", err)
	}

	res := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		res = append(res, toClientResponse(c))
	}

	return res, total, nil
}

func (s *clientService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, payload interface{}) error {
	var uid *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		uid = &parsed
	}
	details, _ := json.Marshal(payload)
	entry := &model.AuditLog{
		UserID:     uid,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

// --- Response mappers ---

func toClientResponse(c model.Client) ClientResponse {
	addresses := make([]AddressResponse, 0, len(c.Addresses))
	for _, a := range c.Addresses {
		addresses = append(addresses, AddressResponse{
			ID:          a.ID,
			ClientID:    a.ClientID,
			AddressType: a.AddressType,
			FullAddress: a.FullAddress,
			IsDefault:   a.IsDefault,
			CreatedAt:   a.CreatedAt,
			UpdatedAt:   a.UpdatedAt,
		})
	}

	return ClientResponse{
		ID:            c.ID,
		Code:          c.Code,
		Name:          c.Name,
		Status:        c.Status,
		TaxCode:       c.TaxCode,
		CompanyName:   c.CompanyName,
		ContactPerson: c.ContactPerson,
		Phone:         c.Phone,
		Email:         c.Email,
		IsActive:      c.IsActive,
		Addresses:     addresses,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}
